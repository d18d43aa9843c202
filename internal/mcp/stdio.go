package mcp

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"convertmcp/internal/jsonx"
)

const maxMessageSize = 8 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// responses to out. tools/call requests run concurrently; every other
// message is handled in arrival order. Responses are written one per line
// through a single locked encoder. It returns when in is exhausted or ctx
// ends, after in-flight calls finish.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	encoder := jsonx.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	write := func(resp *Response) {
		if resp == nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write response: %v", err)
		}
	}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			msg := append([]byte(nil), line...)
			select {
			case lines <- msg:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			req, err := UnmarshalRequest(line)
			if err == nil && req.Method == "tools/call" && !req.IsNotification() {
				wg.Add(1)
				go func() {
					defer wg.Done()
					write(s.Handle(ctx, req))
				}()
				continue
			}
			write(s.HandleMessage(ctx, line))
		}
	}
}
