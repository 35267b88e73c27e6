package timex

// HMS splits an epoch-seconds value into UTC hour, minute, second.
func HMS(epoch uint32) (h, m, s uint32) {
	day := epoch % 86_400
	return day / 3_600, (day / 60) % 60, day % 60
}
