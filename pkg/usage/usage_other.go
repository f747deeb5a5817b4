//go:build !windows

package usage

func probe() (Usages, error) {
	return nil, ErrNotSupported
}
