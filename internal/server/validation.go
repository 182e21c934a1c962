package server

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"two-truths/internal/game"
)

const (
	minRoomID       = 100000
	maxRoomID       = 999999
	defaultEventCap = 50
)

var validatorOnce sync.Once

// registerValidators adds the request tags used by the binding structs.
// Length and character checks stay in the game package.
func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return game.NormalizeText(fl.Field().String()) != ""
		})
		_ = engine.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
			id := fl.Field().Int()
			return id >= minRoomID && id <= maxRoomID
		})
	})
}

type roomURI struct {
	ID int `uri:"id" binding:"required,roomid"`
}

type profileRequest struct {
	Name     string `json:"name" binding:"notblank"`
	Surname  string `json:"surname"`
	Position string `json:"position"`
}

func (r profileRequest) profile() game.Profile {
	return game.Profile{Name: r.Name, Surname: r.Surname, Position: r.Position}
}

var profileMessages = bindMessages{
	"Name": {"notblank": "name is required"},
}

type createRoomRequest struct {
	Name string `json:"name" binding:"notblank"`
}

type factsRequest struct {
	Fact1 string `json:"fact1" binding:"notblank"`
	Fact2 string `json:"fact2" binding:"notblank"`
	Fact3 string `json:"fact3" binding:"notblank"`
}

var factsMessages = bindMessages{
	"Fact1": {"notblank": "fact1 is required"},
	"Fact2": {"notblank": "fact2 is required"},
	"Fact3": {"notblank": "fact3 is required"},
}

type guessRequest struct {
	TargetID  string `json:"target_id" binding:"notblank"`
	Statement string `json:"statement" binding:"notblank"`
}

var guessMessages = bindMessages{
	"TargetID":  {"notblank": "target_id is required"},
	"Statement": {"notblank": "statement is required"},
}

type eventsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
