package plugin

import (
	"fmt"

	"github.com/zeusync/simpleteleport/internal/core/teleport"
)

const helpMessage = `<b><color="88ff99"><size="26">Simple Teleport</></></>
Teleport players with a brick's interact component set to Print To Console.
Put <color="88ff88">teleport:[X],[Y],[Z]</> in the Print To Console textbox.
Add a <color="88ff88">~</> before a number to move relative to the player on that axis, e.g. <color="88ff88">teleport:~0,~0,~500</>.`

func positionMessage(p teleport.Position) string {
	return fmt.Sprintf("<size=\"16\">Your current position is:</>\n<size=\"26\">%s, %s, %s</>",
		roundCoordinate(p.X()), roundCoordinate(p.Y()), roundCoordinate(p.Z()))
}
