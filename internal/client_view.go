package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// pre styled colors// all from lipgloss
var (
	appTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	menuHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	noticeBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(1, 2).MarginTop(1)
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle  = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	rosterBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	clockStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	selfStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	rowStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle      = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	dividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	liveDot         = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	idleDot         = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("○")
)

func (model TUIModel) View() string {
	switch model.mode {
	case modeTokenPrompt:
		return model.renderTokenPromptView()
	case modeRoomSelect:
		return model.renderRoomSelectView()
	default:
		return model.renderDashboardView()
	}
}

func (model TUIModel) renderTokenPromptView() string {
	title := appTitleStyle.Render("LiveRoom")
	hint := menuHintStyle.Render("Paste an access token and press Enter. Esc quits.")

	viewSections := []string{title, hint}
	if notices := model.renderNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, inputBoxStyle.Render(model.textInput.View()))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model TUIModel) renderRoomSelectView() string {
	title := appTitleStyle.Render("LiveRoom")
	subtitle := subtitleStyle.Render("Pick a room to watch")

	viewSections := []string{lipgloss.JoinVertical(lipgloss.Left, title, subtitle)}

	var lines []string
	if len(model.rooms) == 0 {
		lines = append(lines, menuHintStyle.Render("No rooms yet. Press R to refresh."))
	} else {
		for idx, room := range model.rooms {
			label := fmt.Sprintf("%s  (%d live)", room.Name, model.store.LiveCount(room.ID))
			if idx == model.selectedRoom {
				lines = append(lines, selectedStyle.Render("➤ "+label))
			} else {
				lines = append(lines, rowStyle.Render("  "+label))
			}
		}
	}
	viewSections = append(viewSections, menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	if notices := model.renderNotices(); notices != "" {
		viewSections = append(viewSections, notices)
	}
	viewSections = append(viewSections, menuHintStyle.Render("↑/↓ select • Enter open • R refresh • Q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func (model TUIModel) renderDashboardView() string {
	headerSegments := []string{"LiveRoom", fmt.Sprintf("Room %s", model.roomName())}
	if model.userID != "" {
		headerSegments = append(headerSegments, fmt.Sprintf("User %s", model.userID))
	}
	header := headerStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.connectionError != nil:
		statusLine = errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.manager.State() == StateConnected:
		statusLine = connectedStyle.Render("Live")
	case model.manager.State() == StateReconnecting:
		statusLine = connectingStyle.Render("Reconnecting…")
	default:
		statusLine = connectingStyle.Render("Connecting…")
	}

	sections := []string{header, statusLine, model.renderTrackerLine(), model.renderRoster(), model.renderLeaderboard()}
	if model.loading {
		sections = append(sections, connectingStyle.Render("Refreshing…"))
	}
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, menuHintStyle.Render("R refresh • S stop tracker • Esc rooms • Q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTrackerLine shows the caller's own running session as a live clock.
func (model TUIModel) renderTrackerLine() string {
	if model.activeTrack == nil || model.trackStart.IsZero() {
		return statusStyle.Render("No tracker running")
	}
	clock := clockStyle.Render(FormatElapsed(model.trackStart, model.now))
	return statusStyle.Render("Tracking ") + selfStyle.Render(model.activeTrack.ActivityID) + statusStyle.Render("  ") + clock
}

// renderRoster lists every live user in the room with a ticking elapsed
// clock per session.
func (model TUIModel) renderRoster() string {
	sessions := model.store.RoomSessions(model.roomID)
	if len(sessions) == 0 {
		return rosterBoxStyle.Render(noticeStyle.Render("Nobody is live right now."))
	}

	sort.Slice(sessions, func(a, b int) bool {
		if sessions[a].UserID != sessions[b].UserID {
			return sessions[a].UserID < sessions[b].UserID
		}
		return sessions[a].ObjectiveID < sessions[b].ObjectiveID
	})

	var lines []string
	for _, s := range sessions {
		name := rowStyle.Render(s.UserID)
		if s.UserID == model.userID {
			name = selfStyle.Render(s.UserID)
		}
		line := fmt.Sprintf("%s %s  %s  %s", liveDot, name, rowStyle.Render(s.ObjectiveID), clockStyle.Render(FormatElapsed(s.StartTime, model.now)))
		lines = append(lines, line)
	}
	return rosterBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderLeaderboard shows persisted totals with the live portion folded in.
func (model TUIModel) renderLeaderboard() string {
	if len(model.leaderboard) == 0 {
		return ""
	}

	live := make(map[string][]LiveSession)
	for _, s := range model.store.RoomSessions(model.roomID) {
		live[s.UserID] = append(live[s.UserID], s)
	}

	var lines []string
	for _, entry := range model.leaderboard {
		lines = append(lines, subtitleStyle.Render(entry.ObjectiveID))
		for rank, row := range RankWithLive(entry.Rankings, entry.ObjectiveID, live, model.now) {
			dot := idleDot
			if row.IsLive {
				dot = liveDot
			}
			name := rowStyle.Render(row.UserFullName)
			if row.UserID == model.userID {
				name = selfStyle.Render(row.UserFullName)
			}
			lines = append(lines, fmt.Sprintf("%2d. %s %s  %s", rank+1, dot, name, clockStyle.Render(fmt.Sprintf("%dm", row.Minutes))))
		}
	}
	return rosterBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model TUIModel) renderNotices() string {
	if len(model.notices) == 0 {
		return ""
	}
	var lines []string
	for _, n := range model.notices {
		lines = append(lines, noticeStyle.Render(n))
	}
	return noticeBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model TUIModel) roomName() string {
	for _, room := range model.rooms {
		if room.ID == model.roomID {
			return room.Name
		}
	}
	return model.roomID
}
