package handlers_test

import "strconv"

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
