package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type (
	tickMsg        time.Time
	presenceMsg    LiveStatusUpdate
	eventsDoneMsg  struct{}
	snapshotMsg    LiveSnapshot
	roomsMsg       []RoomInfo
	leaderboardMsg []LeaderboardEntry
	activeMsg      *ActiveActivity
	errorMsg       error
	noticeMsg      string
)

// tickCmd re-arms the 1s wall clock that keeps the running counters moving
// without any relay traffic.
func (model *TUIModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitEventCmd blocks on the relay event stream for one update. Each
// delivered event re-issues the command, so the stream is consumed one
// message per Update cycle.
func (model *TUIModel) waitEventCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-model.manager.Events()
		if !ok {
			return eventsDoneMsg{}
		}
		return presenceMsg(ev)
	}
}

func (model *TUIModel) loadRoomsCmd() tea.Cmd {
	return func() tea.Msg {
		rooms, err := model.gateway.Rooms()
		if err != nil {
			return errorMsg(err)
		}
		return roomsMsg(rooms)
	}
}

func (model *TUIModel) loadSnapshotCmd() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := model.gateway.LiveStatus()
		if err != nil {
			return errorMsg(err)
		}
		return snapshotMsg(snapshot)
	}
}

func (model *TUIModel) loadLeaderboardCmd(roomID string) tea.Cmd {
	return func() tea.Msg {
		entries, err := model.gateway.Leaderboard(roomID)
		if err != nil {
			return errorMsg(err)
		}
		return leaderboardMsg(entries)
	}
}

func (model *TUIModel) loadActiveCmd() tea.Cmd {
	return func() tea.Msg {
		active, err := model.gateway.ActiveTracker()
		if err != nil {
			return errorMsg(err)
		}
		return activeMsg(active)
	}
}

func (model *TUIModel) stopTrackerCmd() tea.Cmd {
	return func() tea.Msg {
		if err := model.gateway.StopTracker(); err != nil {
			return errorMsg(err)
		}
		return activeMsg(nil)
	}
}

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		if typedMessage.Type == tea.KeyCtrlC {
			model.manager.Close()
			return model, tea.Quit
		}
		switch model.mode {
		case modeTokenPrompt:
			return model.updateTokenPrompt(typedMessage)
		case modeRoomSelect:
			return model.updateRoomSelect(typedMessage)
		case modeDashboard:
			return model.updateDashboard(typedMessage)
		}

	case tickMsg:
		model.now = time.Time(typedMessage)
		return model, model.tickCmd()

	case presenceMsg:
		event := LiveStatusUpdate(typedMessage)
		model.store.Apply(event)
		// our own tracker changed somewhere else; re-sync the local view
		if event.UserID == model.userID {
			return model, tea.Batch(model.waitEventCmd(), model.loadActiveCmd())
		}
		return model, model.waitEventCmd()

	case eventsDoneMsg:
		return model, nil

	case snapshotMsg:
		model.store.ReplaceAll(LiveSnapshot(typedMessage))
		return model, nil

	case roomsMsg:
		model.rooms = typedMessage
		if model.selectedRoom >= len(model.rooms) {
			model.selectedRoom = 0
		}
		return model, nil

	case leaderboardMsg:
		model.leaderboard = typedMessage
		model.loading = false
		return model, nil

	case activeMsg:
		model.activeTrack = typedMessage
		model.trackStart = time.Time{}
		if model.activeTrack != nil {
			if start, err := parseStartTime(model.activeTrack.StartTime); err == nil {
				model.trackStart = start
			}
		}
		return model, nil

	case errorMsg:
		if errors.Is(typedMessage, ErrSessionExpired) {
			DeleteCredentials(model.tokenFile)
			model.manager.Close()
			model.connectionError = typedMessage
			return model, tea.Quit
		}
		model.pushNotice(fmt.Sprintf("Error: %v", error(typedMessage)))
		model.loading = false
		return model, nil

	case noticeMsg:
		model.pushNotice(string(typedMessage))
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) updateTokenPrompt(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		return model, tea.Quit
	case tea.KeyEnter:
		token := strings.TrimSpace(model.textInput.Value())
		if token == "" {
			model.pushNotice("Token cannot be empty.")
			return model, nil
		}
		model.creds.Set(CredentialPair{AccessToken: token})
		if err := SaveCredentials(model.tokenFile, model.creds.Pair()); err != nil {
			model.pushNotice(fmt.Sprintf("Could not save token: %v", err))
		}
		model.userID = SubjectFromToken(token)
		model.textInput.SetValue("")
		model.textInput.Blur()
		model.textInput.Prompt = ""
		if model.roomID != "" {
			model.mode = modeDashboard
		} else {
			model.mode = modeRoomSelect
		}
		return model, model.startCmd()
	default:
		var cmd tea.Cmd
		model.textInput, cmd = model.textInput.Update(key)
		return model, cmd
	}
}

func (model *TUIModel) updateRoomSelect(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if model.selectedRoom > 0 {
			model.selectedRoom--
		}
		return model, nil
	case "down", "j":
		if model.selectedRoom < len(model.rooms)-1 {
			model.selectedRoom++
		}
		return model, nil
	case "r", "R":
		return model, model.loadRoomsCmd()
	case "q", "Q":
		model.manager.Close()
		return model, tea.Quit
	case "enter":
		if len(model.rooms) == 0 {
			return model, nil
		}
		model.roomID = model.rooms[model.selectedRoom].ID
		model.mode = modeDashboard
		model.loading = true
		model.manager.SetRooms([]string{model.roomID})
		return model, model.loadLeaderboardCmd(model.roomID)
	}
	return model, nil
}

func (model *TUIModel) updateDashboard(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "r", "R":
		model.loading = true
		return model, tea.Batch(model.loadSnapshotCmd(), model.loadLeaderboardCmd(model.roomID), model.loadActiveCmd())
	case "s", "S":
		if model.activeTrack != nil {
			return model, model.stopTrackerCmd()
		}
		return model, nil
	case "esc", "b", "B":
		model.manager.LeaveRoom(model.roomID)
		model.roomID = ""
		model.leaderboard = nil
		model.mode = modeRoomSelect
		return model, model.loadRoomsCmd()
	case "q", "Q":
		model.manager.Close()
		return model, tea.Quit
	}
	return model, nil
}

// pushNotice keeps the last few status lines for the footer.
func (model *TUIModel) pushNotice(text string) {
	model.notices = append(model.notices, text)
	if len(model.notices) > 3 {
		model.notices = model.notices[len(model.notices)-3:]
	}
}
