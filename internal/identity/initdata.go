package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

var ErrInvalidInitData = errors.New("invalid init data")

// User is the validated identity carried by Telegram WebApp init data.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

type InitData struct {
	User       User
	AuthDate   time.Time
	StartParam string
}

// InviteRoom returns the room id encoded in a start parameter such as
// "room_483920" or "room-483920".
func (d InitData) InviteRoom() (int, bool) {
	return ParseInviteRoom(d.StartParam)
}

// Verifier checks the signature and freshness of raw init data.
type Verifier struct {
	botToken string
	insecure bool
	maxAge   time.Duration
	now      func() time.Time
}

type Option func(*Verifier)

// WithInsecure skips the signature check. Meant for local development only.
func WithInsecure() Option {
	return func(v *Verifier) { v.insecure = true }
}

func WithMaxAge(maxAge time.Duration) Option {
	return func(v *Verifier) { v.maxAge = maxAge }
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(botToken string, opts ...Option) *Verifier {
	v := &Verifier{botToken: botToken, maxAge: 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Verify(raw string) (InitData, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InitData{}, fmt.Errorf("%w: empty payload", ErrInvalidInitData)
	}
	var (
		values url.Values
		err    error
	)
	if v.insecure {
		values, err = url.ParseQuery(raw)
	} else {
		if v.botToken == "" {
			return InitData{}, fmt.Errorf("%w: bot token is not configured", ErrInvalidInitData)
		}
		values, err = tu.ValidateWebAppData(v.botToken, raw)
	}
	if err != nil {
		return InitData{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	data, err := ParseInitData(values)
	if err != nil {
		return InitData{}, err
	}
	if v.maxAge > 0 && !data.AuthDate.IsZero() && v.now().Sub(data.AuthDate) > v.maxAge {
		return InitData{}, fmt.Errorf("%w: auth_date is too old", ErrInvalidInitData)
	}
	return data, nil
}

// ParseInitData turns already authenticated init data fields into InitData,
// rejecting payloads without a usable user.
func ParseInitData(values url.Values) (InitData, error) {
	rawUser := values.Get("user")
	if rawUser == "" {
		return InitData{}, fmt.Errorf("%w: user is missing", ErrInvalidInitData)
	}
	var tgUser telego.User
	if err := json.Unmarshal([]byte(rawUser), &tgUser); err != nil {
		return InitData{}, fmt.Errorf("%w: user: %v", ErrInvalidInitData, err)
	}
	user, err := userFrom(tgUser)
	if err != nil {
		return InitData{}, err
	}
	data := InitData{User: user, StartParam: strings.TrimSpace(values.Get("start_param"))}
	if rawDate := values.Get("auth_date"); rawDate != "" {
		seconds, err := strconv.ParseInt(rawDate, 10, 64)
		if err != nil || seconds <= 0 {
			return InitData{}, fmt.Errorf("%w: auth_date is malformed", ErrInvalidInitData)
		}
		data.AuthDate = time.Unix(seconds, 0).UTC()
	}
	return data, nil
}

func userFrom(tgUser telego.User) (User, error) {
	if tgUser.ID <= 0 {
		return User{}, fmt.Errorf("%w: user id is missing", ErrInvalidInitData)
	}
	if tgUser.IsBot {
		return User{}, fmt.Errorf("%w: bots cannot play", ErrInvalidInitData)
	}
	firstName := strings.TrimSpace(tgUser.FirstName)
	if firstName == "" {
		return User{}, fmt.Errorf("%w: first_name is missing", ErrInvalidInitData)
	}
	return User{
		ID:           strconv.FormatInt(tgUser.ID, 10),
		FirstName:    firstName,
		LastName:     strings.TrimSpace(tgUser.LastName),
		Username:     strings.TrimSpace(tgUser.Username),
		LanguageCode: strings.TrimSpace(tgUser.LanguageCode),
	}, nil
}

func ParseInviteRoom(param string) (int, bool) {
	param = strings.TrimSpace(param)
	for _, prefix := range []string{"room_", "room-"} {
		if rest, ok := strings.CutPrefix(param, prefix); ok {
			id, err := strconv.Atoi(rest)
			if err != nil || id <= 0 {
				return 0, false
			}
			return id, true
		}
	}
	return 0, false
}

// InviteParam is the start parameter that opens the mini app in a room.
func InviteParam(roomID int) string {
	return "room_" + strconv.Itoa(roomID)
}
