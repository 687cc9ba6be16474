package ach

var routingWeights = [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}

// ValidRoutingNumber checks the ABA routing number: nine digits with an
// assigned leading prefix whose 3-7-1 weighted sum is a multiple of ten.
func ValidRoutingNumber(rt string) bool {
	if len(rt) != 9 || rt == "000000000" {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		c := rt[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * routingWeights[i]
	}
	return validPrefix(int(rt[0]-'0')*10+int(rt[1]-'0')) && sum%10 == 0
}

// validPrefix reports whether the first two digits fall in a range the ABA
// assigns: 00-12 Federal Reserve and government, 21-32 thrifts, 61-72
// electronic, 80 traveler's checks.
func validPrefix(p int) bool {
	switch {
	case p <= 12, 21 <= p && p <= 32, 61 <= p && p <= 72, p == 80:
		return true
	}
	return false
}

// CheckDigit computes the ninth digit for an eight-digit routing prefix.
func CheckDigit(prefix string) (byte, bool) {
	if len(prefix) != 8 {
		return 0, false
	}
	sum := 0
	for i := 0; i < 8; i++ {
		c := prefix[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * routingWeights[i]
	}
	return byte('0' + (10-sum%10)%10), true
}
