package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
)

const owner = "6f1c1a0e-7d7e-4c8e-9a57-1b2b9d0f3e11"

func TestIsCrossOwnerAccess(t *testing.T) {
	cases := []struct {
		name    string
		subject Subject
		ownerID string
		cross   bool
	}{
		{"same id", SubjectString(owner), owner, false},
		{"upper case uuid", SubjectString(owner), "6F1C1A0E-7D7E-4C8E-9A57-1B2B9D0F3E11", false},
		{"braced uuid", SubjectString("{" + owner + "}"), owner, false},
		{"urn uuid", SubjectString("urn:uuid:" + owner), owner, false},
		{"surrounding spaces", SubjectString("  " + owner + " "), owner, false},
		{"different uuid", SubjectString(owner), uuid.NewString(), true},
		{"non uuid equal", SubjectString("user_123"), "user_123", false},
		{"non uuid differs by case", SubjectString("user_123"), "USER_123", true},
		{"non uuid different", SubjectString("user_123"), "user_456", true},
		{"empty subject", SubjectString(""), "", true},
		{"nil subject", nil, owner, true},
		{"identity value", entity.Identity{Subject: owner}, owner, false},
		{"user pointer", &entity.User{ID: owner}, owner, false},
		{"nil user pointer", (*entity.User)(nil), owner, true},
		{"claims map user_id", SubjectFromMap(map[string]any{"user_id": owner}), owner, false},
		{"claims map uuid value", SubjectFromMap(map[string]any{"id": uuid.MustParse(owner)}), owner, false},
		{"claims map sub", SubjectFromMap(map[string]any{"sub": "someone"}), owner, true},
		{"claims map empty", SubjectFromMap(map[string]any{}), owner, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.cross, IsCrossOwnerAccess(tc.subject, tc.ownerID))
		})
	}
}

func TestIsCrossOwnerAccess_Symmetric(t *testing.T) {
	ids := []string{owner, uuid.NewString(), "user_1", "USER_1", ""}
	for _, a := range ids {
		for _, b := range ids {
			if a == "" || b == "" {
				continue
			}
			assert.Equal(t,
				IsCrossOwnerAccess(SubjectString(a), b),
				IsCrossOwnerAccess(SubjectString(b), a),
				"%q vs %q", a, b)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, owner, Normalize(" 6F1C1A0E-7D7E-4C8E-9A57-1B2B9D0F3E11 "))
	assert.Equal(t, "Bob", Normalize(" Bob "))
}
