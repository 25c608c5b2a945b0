package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	minerReadBufferSize = 8 << 10
	maxRequestLineBytes = 64 << 10
)

// MinerConn owns one miner TCP connection: the buffered reader feeding the
// request loop and the flush-per-message writer shared between RPC responses
// and broadcast pushes. The write mutex is the only synchronization between
// those two paths.
type MinerConn struct {
	srv    *Stratum
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	remote string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newMinerConn(srv *Stratum, conn net.Conn) *MinerConn {
	return &MinerConn{
		srv:    srv,
		conn:   conn,
		reader: bufio.NewReaderSize(conn, minerReadBufferSize),
		writer: bufio.NewWriter(conn),
		remote: srv.identity(conn),
	}
}

func (mc *MinerConn) Close(reason string) {
	mc.closeOnce.Do(func() {
		if debugLogging {
			logger.Debug("closing miner connection", "remote", mc.remote, "reason", reason)
		}
		_ = mc.conn.Close()
	})
}

// handle runs the per-connection request loop until the peer hangs up, the
// read deadline fires, or the server shuts down.
func (mc *MinerConn) handle() {
	defer mc.Close("handler exit")

	for {
		if err := mc.conn.SetReadDeadline(time.Now().Add(stratumReadTimeout)); err != nil {
			return
		}
		line, err := mc.reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				if debugLogging {
					logger.Debug("miner read error", "remote", mc.remote, "error", err)
				}
			}
			return
		}
		if len(line) > maxRequestLineBytes {
			logger.Warn("oversized request line; dropping miner", "remote", mc.remote, "bytes", len(line))
			return
		}

		var req StratumRequest
		if err := fastJSONUnmarshal(line, &req); err != nil {
			logger.Warn("malformed request line", "remote", mc.remote, "error", err)
			continue
		}
		mc.dispatch(&req)
	}
}

func (mc *MinerConn) dispatch(req *StratumRequest) {
	switch req.Method {
	case methodSubscribe:
		mc.writeResultResponse(req.ID, mc.srv.rpcSubscribe(mc.remote))
	case methodAuthorize:
		workerLabel, secret, ok := parseAuthorizeParams(req.Params)
		if !ok {
			logger.Warn("invalid authorize params", "remote", mc.remote)
			mc.writeErrorResponse(req.ID, stratumErrCodeInvalidParams, "invalid params")
			return
		}
		mc.writeBoolResponse(req.ID, mc.srv.rpcAuthorize(mc.remote, workerLabel, secret))
	case methodSubmit:
		mc.writeBoolResponse(req.ID, mc.srv.rpcSubmit(mc.remote, req.Params))
	default:
		if debugLogging {
			logger.Debug("unknown method", "remote", mc.remote, "method", req.Method)
		}
		mc.writeErrorResponse(req.ID, stratumErrCodeMethodNotFound, "unknown method")
	}
}

// parseAuthorizeParams expects the positional pair [worker_label, secret].
func parseAuthorizeParams(params any) (workerLabel, secret string, ok bool) {
	list, isList := params.([]any)
	if !isList || len(list) < 2 {
		return "", "", false
	}
	workerLabel, okLabel := list[0].(string)
	secret, okSecret := list[1].(string)
	if !okLabel || !okSecret {
		return "", "", false
	}
	return workerLabel, secret, true
}

func (mc *MinerConn) writeJSON(v any) error {
	b, err := fastJSONMarshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return mc.writeBytes(b)
}

func (mc *MinerConn) writeBytes(b []byte) error {
	mc.writeMu.Lock()
	defer mc.writeMu.Unlock()

	if err := mc.conn.SetWriteDeadline(time.Now().Add(stratumWriteTimeout)); err != nil {
		return err
	}
	if _, err := mc.writer.Write(b); err != nil {
		return err
	}
	return mc.writer.Flush()
}

var (
	cannedTrueSuffix       = []byte(`,"result":true,"error":null}`)
	cannedFalseSuffix      = []byte(`,"result":false,"error":null}`)
	cannedEmptySliceSuffix = []byte(`,"result":[],"error":null}`)
)

func (mc *MinerConn) writeBoolResponse(id any, result bool) {
	if result {
		mc.sendCannedResponse("true", id, cannedTrueSuffix)
		return
	}
	mc.sendCannedResponse("false", id, cannedFalseSuffix)
}

func (mc *MinerConn) writeResultResponse(id any, result any) {
	// Empty slice results are common enough (subscribe with no job yet) to
	// warrant the canned fast path.
	if list, ok := result.([]any); ok && len(list) == 0 {
		mc.sendCannedResponse("empty slice", id, cannedEmptySliceSuffix)
		return
	}
	if err := mc.writeJSON(StratumResponse{ID: id, Result: result}); err != nil {
		logger.Error("write response", "remote", mc.remote, "error", err)
	}
}

func (mc *MinerConn) writeErrorResponse(id any, code int, msg string) {
	resp := StratumResponse{ID: id, Error: &StratumError{Code: code, Message: msg}}
	if err := mc.writeJSON(resp); err != nil {
		logger.Error("write error response", "remote", mc.remote, "error", err)
	}
}

func (mc *MinerConn) sendCannedResponse(label string, id any, suffix []byte) {
	if err := mc.writeCannedResponse(id, suffix); err != nil {
		logger.Error("write canned response", "remote", mc.remote, "label", label, "error", err)
	}
}

func (mc *MinerConn) writeCannedResponse(id any, suffix []byte) error {
	buf := make([]byte, 0, 64)
	buf = append(buf, `{"id":`...)
	var err error
	buf, err = appendJSONValue(buf, id)
	if err != nil {
		return err
	}
	buf = append(buf, suffix...)
	buf = append(buf, '\n')
	return mc.writeBytes(buf)
}

func appendJSONValue(buf []byte, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(buf, "null"...), nil
	case string:
		return strconv.AppendQuote(buf, v), nil
	case bool:
		if v {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case float64:
		return strconv.AppendFloat(buf, v, 'g', -1, 64), nil
	case int:
		return strconv.AppendInt(buf, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(buf, v, 10), nil
	case uint32:
		return strconv.AppendUint(buf, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(buf, v, 10), nil
	default:
		b, err := fastJSONMarshal(value)
		if err != nil {
			return buf, err
		}
		return append(buf, b...), nil
	}
}
