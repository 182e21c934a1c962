package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"two-truths/internal/game"
)

type playerJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Surname    string `json:"surname,omitempty"`
	Position   string `json:"position,omitempty"`
	Display    string `json:"display_name"`
	Registered bool   `json:"registered"`
}

type roomJSON struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type targetJSON struct {
	Player     playerJSON `json:"player"`
	Statements []string   `json:"statements"`
}

type statsJSON struct {
	Total       int `json:"total"`
	Correct     int `json:"correct"`
	AccuracyPct int `json:"accuracy_pct"`
}

type guessJSON struct {
	GuesserID   string    `json:"guesser_id"`
	GuesserName string    `json:"guesser_name"`
	Chosen      string    `json:"chosen"`
	IsCorrect   bool      `json:"is_correct"`
	CreatedAt   time.Time `json:"created_at"`
}

type factStatJSON struct {
	Statement      string      `json:"statement"`
	IsFalse        bool        `json:"is_false"`
	TotalGuesses   int         `json:"total_guesses"`
	CorrectGuesses int         `json:"correct_guesses"`
	Guesses        []guessJSON `json:"guesses"`
}

type standingJSON struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Stats    statsJSON `json:"stats"`
}

type eventJSON struct {
	ID        uint           `json:"id"`
	Type      string         `json:"type"`
	PlayerID  string         `json:"player_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func playerView(p game.Player) playerJSON {
	return playerJSON{
		ID:         p.ID,
		Name:       p.Name,
		Surname:    p.Surname,
		Position:   p.Position,
		Display:    p.DisplayName(),
		Registered: p.Registered,
	}
}

func playersView(players []game.Player) []playerJSON {
	out := make([]playerJSON, 0, len(players))
	for _, p := range players {
		out = append(out, playerView(p))
	}
	return out
}

func roomView(r game.Room) roomJSON {
	return roomJSON{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

func roomsView(rooms []game.Room) []roomJSON {
	out := make([]roomJSON, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomView(r))
	}
	return out
}

func statsView(s game.Stats) statsJSON {
	return statsJSON{Total: s.Total, Correct: s.Correct, AccuracyPct: s.AccuracyPct}
}

func targetsView(targets []game.Target) []targetJSON {
	out := make([]targetJSON, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetJSON{Player: playerView(t.Player), Statements: t.Statements})
	}
	return out
}

func breakdownView(stats []game.FactStat) []factStatJSON {
	out := make([]factStatJSON, 0, len(stats))
	for _, fs := range stats {
		guesses := make([]guessJSON, 0, len(fs.Guesses))
		for _, g := range fs.Guesses {
			guesses = append(guesses, guessJSON{
				GuesserID:   g.GuesserID,
				GuesserName: g.GuesserName,
				Chosen:      g.Chosen,
				IsCorrect:   g.IsCorrect,
				CreatedAt:   g.CreatedAt,
			})
		}
		out = append(out, factStatJSON{
			Statement:      fs.Statement,
			IsFalse:        fs.IsFalse,
			TotalGuesses:   fs.TotalGuesses,
			CorrectGuesses: fs.CorrectGuesses,
			Guesses:        guesses,
		})
	}
	return out
}

func leaderboardView(board []game.Standing) []standingJSON {
	out := make([]standingJSON, 0, len(board))
	for _, st := range board {
		out = append(out, standingJSON{PlayerID: st.PlayerID, Name: st.Name, Stats: statsView(st.Stats)})
	}
	return out
}

func eventsView(events []game.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:        e.ID,
			Type:      e.Type,
			PlayerID:  e.PlayerID,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// stateView renders a flow state the way the shell switches screens on
// the "stage" field.
func stateView(state game.State) gin.H {
	view := gin.H{"stage": state.Stage()}
	switch st := state.(type) {
	case game.Registration:
		view["seed"] = gin.H{"name": st.Seed.Name, "surname": st.Seed.Surname, "position": st.Seed.Position}
	case game.RoomSelection:
		view["player"] = playerView(st.Player)
		view["rooms"] = roomsView(st.Rooms)
	case game.ProfileSettings:
		view["player"] = playerView(st.Player)
	case game.InRoom:
		view["player"] = playerView(st.Player)
		view["room"] = roomView(st.Room)
		view["date"] = st.Date
		view["submitted"] = st.Submitted
		view["roster"] = playersView(st.Roster)
		view["members"] = playersView(st.Members)
	case game.Guessing:
		view["player"] = playerView(st.Player)
		view["room"] = roomView(st.Room)
		view["date"] = st.Date
		view["targets"] = targetsView(st.Targets)
	case game.Results:
		view["player"] = playerView(st.Player)
		view["room"] = roomView(st.Room)
		view["date"] = st.Date
		view["stats"] = statsView(st.Stats)
		view["breakdown"] = breakdownView(st.Breakdown)
		view["leaderboard"] = leaderboardView(st.Leaderboard)
	}
	return view
}
