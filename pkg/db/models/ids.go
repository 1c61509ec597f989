package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the caller left the primary key empty so
// inserts do not depend on a database-side default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
