package commands

import (
	"fmt"

	"github.com/architeacher/posts/services/svc-posts/internal/domain/model"
)

// checkPathID rejects a body id that names a different post than the path.
func checkPathID(pathID, bodyID int64) error {
	if bodyID != 0 && bodyID != pathID {
		return fmt.Errorf("%w: body id %d does not match path id %d", model.ErrInvalidPost, bodyID, pathID)
	}

	return nil
}
