package frontend

import (
	"context"
	"io"

	"github.com/ValentinKolb/kvproxy/lib/commands"
)

// IFrontend speaks one wire protocol with a client
type IFrontend interface {
	// Name returns the protocol name (e.g. "resp")
	Name() string
	// Serve reads commands from conn and writes their replies until the client
	// quits or leaves (nil) or an I/O or protocol error ends the session.
	// Commands are handled one after the other through client.
	Serve(ctx context.Context, conn io.ReadWriter, client *commands.Client) error
}
