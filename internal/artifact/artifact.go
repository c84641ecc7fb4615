// Package artifact archives payload/summary pairs to S3-compatible
// storage so a run can be replayed and debugged offline.
package artifact

import "errors"

var ErrNotFound = errors.New("artifact: not found")
