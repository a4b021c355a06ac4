package decode

import "errors"

// Decoder error taxonomy. None of these is ever fatal: malformed
// transactions are logged at debug and dropped, the rest drop silently.
var (
	// ErrMalformedTx marks a structural violation: wrong sizes,
	// unparseable instruction data, misaligned balance arrays.
	ErrMalformedTx = errors.New("malformed transaction")

	// ErrUninteresting marks a transaction that decoded fine but cannot
	// become a signal: no received token, or a blacklisted mint.
	ErrUninteresting = errors.New("uninteresting transaction")

	// ErrFailedTx marks a transaction whose meta error field is set.
	ErrFailedTx = errors.New("failed transaction")
)
