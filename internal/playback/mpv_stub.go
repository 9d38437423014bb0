//go:build !mpv

package playback

// NewMPVOpener reports ErrNoBackend when built without the mpv tag.
func NewMPVOpener() (Opener, error) {
	return nil, ErrNoBackend
}
