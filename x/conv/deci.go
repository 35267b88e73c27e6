package conv

// Deci formats a fixed-point value in tenths (e.g. 231 => "23.1", -5 =>
// "-0.5"). Allocates only the returned string; suitable for display
// strings on MCU builds where fmt is avoided.
func Deci(v int16) string {
	var buf [8]byte
	b := buf[:0]
	n := int32(v)
	if n < 0 {
		b = append(b, '-')
		n = -n
	}
	var tmp [8]byte
	b = append(b, Itoa(tmp[:], int64(n/10))...)
	b = append(b, '.', byte('0'+n%10))
	return string(b)
}

// Centi formats a fixed-point value in hundredths (e.g. 5034 => "50.34").
func Centi(v uint16) string {
	var buf [8]byte
	b := buf[:0]
	var tmp [8]byte
	b = append(b, Itoa(tmp[:], int64(v/100))...)
	frac := v % 100
	b = append(b, '.', byte('0'+frac/10), byte('0'+frac%10))
	return string(b)
}

// Str renders n in base 10 as a string.
func Str(n int64) string {
	var tmp [20]byte
	return string(Itoa(tmp[:], n))
}

// Pad2 renders n as two digits ("07"), for clock fields.
func Pad2(n uint32) string {
	return string([]byte{byte('0' + (n/10)%10), byte('0' + n%10)})
}
