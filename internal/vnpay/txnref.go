package vnpay

import (
	"strconv"
	"strings"
)

const txnRefSeparator = "_"

// TxnRef is the vnp_TxnRef of one payment attempt: the order id and the
// 1-based attempt number. Attempt 0 yields the bare order id.
func TxnRef(orderID string, attempt int) string {
	if attempt <= 0 {
		return orderID
	}
	return orderID + txnRefSeparator + strconv.Itoa(attempt)
}

// SplitTxnRef reverses TxnRef. A ref without an attempt suffix is returned
// as the order id with attempt 0.
func SplitTxnRef(ref string) (orderID string, attempt int) {
	i := strings.LastIndex(ref, txnRefSeparator)
	if i <= 0 {
		return ref, 0
	}
	n, err := strconv.Atoi(ref[i+1:])
	if err != nil || n <= 0 {
		return ref, 0
	}
	return ref[:i], n
}
