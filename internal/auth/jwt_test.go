package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"villaledger/internal/core"
	"villaledger/internal/snapshot"
)

func roster(board bool) *snapshot.Snapshot {
	return snapshot.New([]core.Villa{
		{ID: "1", VillaNo: "A1", Email: "asha@villas.test", Phone: "98450", IsBoardMember: board},
		{ID: "2", VillaNo: "A2", Email: "ravi@villas.test", Phone: "98451"},
	}, nil, nil, nil, time.Now())
}

func TestLoginAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, session, err := m.Login(roster(true), " asha@villas.test ", "98450")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session != (core.Session{Email: "asha@villas.test", VillaID: "1", IsBoardMember: true}) {
		t.Fatalf("Login() session = %+v", session)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.VillaID != "1" || !claims.Board || claims.Subject != "1" {
		t.Fatalf("claims = %+v", claims)
	}
	if got := claims.Session(roster(true)); got != session {
		t.Errorf("Session() = %+v, want %+v", got, session)
	}
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	tests := []struct{ email, phone string }{
		{"asha@villas.test", "98451"},
		{"nobody@villas.test", "98450"},
		{"", ""},
	}
	for _, tt := range tests {
		if _, s, err := m.Login(roster(false), tt.email, tt.phone); !errors.Is(err, ErrInvalidCredentials) || !s.IsAnonymous() {
			t.Errorf("Login(%q, %q) = %+v, %v", tt.email, tt.phone, s, err)
		}
	}
	if _, _, err := m.Login(nil, "asha@villas.test", "98450"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login on empty roster error = %v", err)
	}
}

func TestSessionFollowsRoster(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, _, err := m.Login(roster(true), "asha@villas.test", "98450")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Session(roster(false)).IsBoardMember {
		t.Error("board flag should follow the current roster")
	}
	if !claims.Session(nil).IsBoardMember {
		t.Error("without a roster the token's board flag is used")
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	villa := core.Villa{ID: "2", Email: "ravi@villas.test"}

	expired := NewJWTManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	oldToken, err := expired.Generate(villa)
	if err != nil {
		t.Fatal(err)
	}

	otherKey, err := NewJWTManager("other-secret", time.Hour).Generate(villa)
	if err != nil {
		t.Fatal(err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{VillaID: "2"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"expired", oldToken, ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"alg none", none, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
