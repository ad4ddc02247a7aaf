package bridge

import (
	"github.com/dshills/copilot-bridge/internal/lsp"
	"github.com/dshills/copilot-bridge/internal/process"
)

// senderAdapter frames router messages onto the subprocess stdin.
type senderAdapter struct {
	server *process.Server
}

func (a senderAdapter) Send(msg *lsp.Message) error {
	data, err := lsp.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return a.server.Send(data)
}
