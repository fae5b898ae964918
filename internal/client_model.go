package internal

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput textinput.Model
	gateway   *Gateway
	creds     *CredentialStore
	manager   *ConnManager
	store     *PresenceStore

	serverURL string
	tokenFile string
	userID    string
	roomID    string

	rooms        []RoomInfo
	selectedRoom int
	leaderboard  []LeaderboardEntry
	activeTrack  *ActiveActivity
	trackStart   time.Time
	now          time.Time

	notices         []string
	loading         bool
	connectionError error
	mode            appMode
}

type appMode int

const (
	modeTokenPrompt appMode = iota
	modeRoomSelect
	modeDashboard
)

func NewTUIModel(serverURL, apiBaseURL, tokenFile, roomID string) *TUIModel {
	input := textinput.New()
	input.CharLimit = 0
	input.Focus()
	input.Prompt = "> "

	creds := NewCredentialStore()
	if pair, err := LoadCredentials(tokenFile); err == nil {
		creds.Set(pair)
	}

	model := &TUIModel{
		textInput: input,
		gateway:   NewGateway(apiBaseURL, creds),
		creds:     creds,
		manager:   NewConnManager(serverURL, creds),
		store:     NewPresenceStore(),
		serverURL: serverURL,
		tokenFile: tokenFile,
		roomID:    roomID,
		now:       time.Now(),
	}

	if creds.AccessToken() == "" {
		model.mode = modeTokenPrompt
		model.textInput.Placeholder = "Paste your access token…"
		model.textInput.Prompt = "token> "
	} else {
		model.userID = SubjectFromToken(creds.AccessToken())
		if roomID == "" {
			model.mode = modeRoomSelect
			model.textInput.Blur()
			model.textInput.Prompt = ""
		} else {
			model.mode = modeDashboard
		}
	}
	return model
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeTokenPrompt {
		return nil
	}
	return model.startCmd()
}

// startCmd kicks off the relay link plus the initial loads in one batch.
func (model *TUIModel) startCmd() tea.Cmd {
	model.manager.Start()
	cmds := []tea.Cmd{
		model.waitEventCmd(),
		model.tickCmd(),
		model.loadRoomsCmd(),
		model.loadSnapshotCmd(),
		model.loadActiveCmd(),
	}
	if model.roomID != "" {
		model.manager.SetRooms([]string{model.roomID})
		cmds = append(cmds, model.loadLeaderboardCmd(model.roomID))
	}
	return tea.Batch(cmds...)
}
