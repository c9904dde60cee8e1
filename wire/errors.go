package wire

import "errors"

var errFragmentTooShort = errors.New("wire: fragment payload shorter than its header claims")
