//go:build !unix

package sensor

func maxRSS() uint64 { return 0 }
