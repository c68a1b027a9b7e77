package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisonline/woec/core"
)

func newTestValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestPasswordPolicy(t *testing.T) {
	SetCommonPasswords([]string{"p@ssw0rd!", "Qwerty123!"})
	defer SetCommonPasswords(nil)

	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 123!xyz", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdef123", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcdef12!", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Ana.lopez1!", attrs: []string{"ana.lopez"}, wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd!", wantTag: pwdNoCommonTag},
		{name: "common list is lowered", pwd: "qWERTY123!", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "k7#Vq!m2Zr", attrs: []string{"ana.lopez", "ana@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, passwordPolicyViolation(tt.pwd, tt.attrs...))
		})
	}
}

func TestLoadCommonPasswords(t *testing.T) {
	defer SetCommonPasswords(nil)

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, LoadCommonPasswords("does-not-exist.txt.gz"))
	})

	require.NoError(t, LoadCommonPasswords(""))
	tests := []struct {
		pwd     string
		wantTag string
	}{
		{pwd: "Qwerty123!", wantTag: pwdNoCommonTag},
		{pwd: "Password1!", wantTag: pwdNoCommonTag},
		{pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{pwd: "k7#Vq!m2Zr"},
	}
	for _, tt := range tests {
		t.Run(tt.pwd, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, passwordPolicyViolation(tt.pwd))
		})
	}
}

func TestNewUserValidate(t *testing.T) {
	validate := newTestValidator()

	valid := func() NewUser {
		return NewUser{
			Username:        " Admin ",
			Email:           "Admin@WOEC.test",
			FirstName:       "Site",
			LastName:        "Admin",
			Role:            "ADMIN",
			Password:        "k7#Vq!m2Zr",
			PasswordConfirm: "k7#Vq!m2Zr",
		}
	}

	nu := valid()
	require.NoError(t, nu.Validate(validate))
	assert.Equal(t, "admin", nu.Username)
	assert.Equal(t, "admin@woec.test", nu.Email)
	assert.Equal(t, RoleAdmin, nu.Role)

	tests := []struct {
		name    string
		mutate  func(nu *NewUser)
		wantTag string
	}{
		{name: "bad username", mutate: func(nu *NewUser) { nu.Username = "a dmin!" }, wantTag: usernameTag},
		{name: "bad role", mutate: func(nu *NewUser) { nu.Role = "teacher" }, wantTag: "oneof"},
		{name: "bad email", mutate: func(nu *NewUser) { nu.Email = "nope" }, wantTag: "email"},
		{name: "confirm mismatch", mutate: func(nu *NewUser) { nu.PasswordConfirm = "other" }, wantTag: "eqfield"},
		{name: "weak password", mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "password", "password" }, wantTag: pwdComplexityTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.mutate(&nu)
			err := nu.Validate(validate)
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
		})
	}
}
