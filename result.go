package sequans

// ResponseResult is the outcome of every blocking read or flush.
type ResponseResult int

const (
	ResponseOK ResponseResult = iota
	ResponseError
	ResponseTimeout
	ResponseBufferOverflow
)

func (r ResponseResult) String() string {
	switch r {
	case ResponseOK:
		return "OK"
	case ResponseError:
		return "ERROR"
	case ResponseTimeout:
		return "TIMEOUT"
	case ResponseBufferOverflow:
		return "BUFFER_OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// Err maps the result onto the package's sentinel errors. ResponseOK maps
// to nil.
func (r ResponseResult) Err() error {
	switch r {
	case ResponseOK:
		return nil
	case ResponseError:
		return ErrModemError
	case ResponseTimeout:
		return ErrResponseTimeout
	default:
		return ErrBufferOverflow
	}
}
