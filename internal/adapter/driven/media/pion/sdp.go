package pion

import (
	"errors"
	"fmt"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/pion/sdp/v3"
)

var ErrInvalidSDP = errors.New("invalid session description")

// ParseSDP checks that raw is a session description with at least one
// media section.
func ParseSDP(raw string) (*sdp.SessionDescription, error) {
	var sd sdp.SessionDescription
	if err := sd.Unmarshal([]byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSDP, err)
	}
	if len(sd.MediaDescriptions) == 0 {
		return nil, fmt.Errorf("%w: no media sections", ErrInvalidSDP)
	}
	return &sd, nil
}

// KindOf reports Video when raw offers an active video section.
func KindOf(raw string) (domain.MediaKind, error) {
	sd, err := ParseSDP(raw)
	if err != nil {
		return "", err
	}
	for _, md := range sd.MediaDescriptions {
		if md.MediaName.Media == "video" && md.MediaName.Port.Value != 0 {
			return domain.Video, nil
		}
	}
	return domain.Audio, nil
}
