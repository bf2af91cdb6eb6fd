package plugin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/zeusync/simpleteleport/internal/core/teleport"
)

// teleportHeading is the yaw every teleport lands the player at.
const teleportHeading = 0

// ConsoleCommand renders req as the server console line that performs it.
func ConsoleCommand(req teleport.Request) (string, error) {
	if req.Requester == "" || strings.ContainsFunc(req.Requester, func(r rune) bool {
		return r == '"' || unicode.IsControl(r)
	}) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, req.Requester)
	}
	for _, v := range req.Target {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: %v", ErrNonFiniteTarget, req.Target)
		}
	}

	return fmt.Sprintf(`Chat.Command /TP "%s" %s %s %s %d`,
		req.Requester,
		formatCoordinate(req.Target.X()),
		formatCoordinate(req.Target.Y()),
		formatCoordinate(req.Target.Z()),
		teleportHeading,
	), nil
}

func formatCoordinate(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundCoordinate rounds half away from zero for display.
func roundCoordinate(v float64) string {
	r := math.Round(v)
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}
