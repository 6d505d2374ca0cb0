package incident

import (
	"strings"

	"github.com/google/uuid"
)

func newIncidentID() string {
	return "INC-" + strings.ToUpper(uuid.NewString()[:6])
}

func newNoteID() string {
	return "N-" + strings.ToUpper(uuid.NewString()[:4])
}
