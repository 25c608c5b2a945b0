package main

const (
	methodSubscribe = "mining.subscribe"
	methodAuthorize = "mining.authorize"
	methodSubmit    = "mining.submit"
	methodNotify    = "mining.notify"
)

const (
	stratumErrCodeInvalidParams  = -32602
	stratumErrCodeMethodNotFound = -32601
)

type StratumRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type StratumResponse struct {
	ID     any           `json:"id"`
	Result any           `json:"result"`
	Error  *StratumError `json:"error"`
}

type StratumError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
