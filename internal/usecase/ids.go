package usecase

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// newNotificationID mints a ULID so notifications sort by emit time.
func newNotificationID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
