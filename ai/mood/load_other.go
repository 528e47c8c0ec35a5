//go:build !linux

package mood

import "github.com/pkg/errors"

// HostLoad is unavailable off Linux; the pressure step becomes a no-op.
type HostLoad struct{}

func (HostLoad) NormalizedLoad() (float64, error) {
	return 0, errors.New("host load not supported on this platform")
}
