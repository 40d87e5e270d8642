//go:build !linux

package registry

// KernelCards reports no cards outside Linux.
func KernelCards() ([]KernelCard, error) {
	return nil, nil
}
