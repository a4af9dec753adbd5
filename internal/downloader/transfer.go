package downloader

// TransferState is the byte bookkeeping for a single download. Total
// is -1 when the size probe failed or the server omitted a length.
type TransferState struct {
	Total       int64
	Transferred int64
}

// NewTransferState initializes bookkeeping for a transfer of the given
// expected size.
func NewTransferState(total int64) *TransferState {
	return &TransferState{Total: total, Transferred: 0}
}

// Add records n more bytes as transferred.
func (t *TransferState) Add(n int) {
	t.Transferred += int64(n)
}

// Overrun reports whether more bytes arrived than the known total.
// Always false in unknown-total mode.
func (t *TransferState) Overrun() bool {
	return t.Total >= 0 && t.Transferred > t.Total
}

// Short reports whether the stream ended before the known total was
// reached. Always false in unknown-total mode.
func (t *TransferState) Short() bool {
	return t.Total >= 0 && t.Transferred < t.Total
}
