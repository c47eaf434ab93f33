package user

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/thesisapp/thesis/core"
)

func TestNewUser_passwordPolicy(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	commonPasswords = []string{"p@ssw0rd123", "qwerty"}
	defer func() { commonPasswords = commonPasswords[:0] }()

	tests := []struct {
		name    string
		nu      NewUser
		wantTag string
	}{
		{
			name: "valid",
			nu:   NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "Thes1s-Mgmt!"},
		},
		{
			name:    "too short",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "Ab1!"},
			wantTag: pwdMinLenTag,
		},
		{
			name:    "whitespace",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "Thes1s Mgmt!"},
			wantTag: pwdNoSpaceTag,
		},
		{
			name:    "all numeric",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "1234567890"},
			wantTag: pwdNotAllNumTag,
		},
		{
			name:    "no special character",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "Thes1sMgmt"},
			wantTag: pwdComplexityTag,
		},
		{
			name:    "similar to id",
			nu:      NewUser{ID: "AnnaRossi1", Email: "s001@polito.it", Role: RoleStudent, Password: "AnnaRossi1!"},
			wantTag: pwdAttrSimTag,
		},
		{
			name:    "common",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: RoleStudent, Password: "P@ssw0rd123"},
			wantTag: pwdNoCommonTag,
		},
		{
			name:    "bad role",
			nu:      NewUser{ID: "S001", Email: "s001@polito.it", Role: "admin", Password: "Thes1s-Mgmt!"},
			wantTag: roleTag,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.nu.PasswordConfirm = tt.nu.Password
			err := validate.Struct(tt.nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Struct() error = %v; want nil", err)
				}
				return
			}

			vErrs, ok := err.(validator.ValidationErrors)
			if !ok || len(vErrs) != 1 {
				t.Fatalf("Struct() error = %v; want one %s error", err, tt.wantTag)
			}
			if vErrs[0].Tag() != tt.wantTag {
				t.Errorf("Struct() tag = %s; want %s", vErrs[0].Tag(), tt.wantTag)
			}
		})
	}
}
