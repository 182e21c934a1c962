package game

import (
	"context"
	"errors"
	"math"
	"sort"
)

// Scoring derives results from the ledger at read time.
type Scoring struct {
	*deps
}

type Stats struct {
	Total       int
	Correct     int
	AccuracyPct int
}

type FactStat struct {
	Statement      string
	IsFalse        bool
	Guesses        []GuessView
	TotalGuesses   int
	CorrectGuesses int
}

type Standing struct {
	PlayerID string
	Name     string
	Stats
}

func newStats(correct, total int) Stats {
	return Stats{Total: total, Correct: correct, AccuracyPct: accuracy(correct, total)}
}

func accuracy(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// MyStats summarizes the guesses playerID made in a room on date.
func (s *Scoring) MyStats(ctx context.Context, playerID string, roomID int, date string) (Stats, error) {
	guesses, err := retryValue(ctx, s.retry, func() ([]Guess, error) {
		return s.store.GuessesBy(ctx, playerID, roomID, date)
	})
	if err != nil {
		return Stats{}, err
	}
	correct := 0
	for _, guess := range guesses {
		if guess.IsCorrect {
			correct++
		}
	}
	return newStats(correct, len(guesses)), nil
}

// FactBreakdown lists, for each of the player's statements in slot order, who
// picked it as the false one. Picks of the true statements are never correct.
func (s *Scoring) FactBreakdown(ctx context.Context, playerID string, roomID int, date string) ([]FactStat, error) {
	facts, err := retryValue(ctx, s.retry, func() (FactSet, error) {
		return s.store.GetFacts(ctx, playerID, roomID, date)
	})
	if errors.Is(err, ErrNotFound) {
		return []FactStat{}, nil
	}
	if err != nil {
		return nil, err
	}
	guesses, err := retryValue(ctx, s.retry, func() ([]GuessView, error) {
		return s.store.GuessesAgainst(ctx, playerID, roomID, date)
	})
	if err != nil {
		return nil, err
	}

	stats := make([]FactStat, 0, 3)
	for _, statement := range facts.Statements() {
		stat := FactStat{
			Statement: statement,
			IsFalse:   statement == facts.FalseStatement(),
			Guesses:   []GuessView{},
		}
		for _, guess := range guesses {
			if guess.Chosen != statement {
				continue
			}
			stat.Guesses = append(stat.Guesses, guess)
			if guess.IsCorrect {
				stat.CorrectGuesses++
			}
		}
		stat.TotalGuesses = len(stat.Guesses)
		stats = append(stats, stat)
	}
	return stats, nil
}

// Leaderboard ranks every guesser of the room on date by correct guesses,
// then accuracy, then name.
func (s *Scoring) Leaderboard(ctx context.Context, roomID int, date string) ([]Standing, error) {
	guesses, err := retryValue(ctx, s.retry, func() ([]GuessView, error) {
		return s.store.RoomGuesses(ctx, roomID, date)
	})
	if err != nil {
		return nil, err
	}
	type tally struct {
		name           string
		correct, total int
	}
	byPlayer := make(map[string]*tally)
	for _, guess := range guesses {
		t, ok := byPlayer[guess.GuesserID]
		if !ok {
			t = &tally{name: guess.GuesserName}
			byPlayer[guess.GuesserID] = t
		}
		t.total++
		if guess.IsCorrect {
			t.correct++
		}
	}
	standings := make([]Standing, 0, len(byPlayer))
	for id, t := range byPlayer {
		standings = append(standings, Standing{PlayerID: id, Name: t.name, Stats: newStats(t.correct, t.total)})
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		if a.AccuracyPct != b.AccuracyPct {
			return a.AccuracyPct > b.AccuracyPct
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlayerID < b.PlayerID
	})
	return standings, nil
}
