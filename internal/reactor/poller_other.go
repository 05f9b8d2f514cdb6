//go:build !linux

package reactor

func newPoller() (Backend, error) {
	return nil, ErrUnsupported
}
