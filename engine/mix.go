package engine

import "github.com/viterin/vek/vek32"

// addLooped adds src, looped from position offset, into dst. An empty src
// adds nothing.
func addLooped(dst, src []float32, offset int) {
	n := len(src)
	if n == 0 {
		return
	}
	pos := offset % n
	for len(dst) > 0 {
		k := min(len(dst), n-pos)
		vek32.Add_Inplace(dst[:k], src[pos:pos+k])
		dst = dst[k:]
		pos = 0
	}
}

// addWrapped adds src into the circular buffer dst, starting at position
// offset. It is the inverse of addLooped.
func addWrapped(dst, src []float32, offset int) {
	n := len(dst)
	if n == 0 {
		return
	}
	pos := offset % n
	for len(src) > 0 {
		k := min(len(src), n-pos)
		vek32.Add_Inplace(dst[pos:pos+k], src[:k])
		src = src[k:]
		pos = 0
	}
}

// peak returns the largest absolute sample value of x, using tmp as scratch
// space. tmp must be at least len(x) long.
func peak(x, tmp []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs_Into(tmp[:len(x)], x))
}
