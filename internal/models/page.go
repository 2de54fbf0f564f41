package models

import "fmt"

// Page is an offset window over a listing. From must be aligned to Size.
type Page struct {
	From int
	Size int
}

func NewPage(from, size int) Page {
	return Page{From: from, Size: size}
}

func (p Page) Validate() error {
	if p.From < 0 {
		return fmt.Errorf("from must not be negative: %d", p.From)
	}
	if p.Size < 1 {
		return fmt.Errorf("size must be positive: %d", p.Size)
	}
	if p.From%p.Size != 0 {
		return fmt.Errorf("from %d is not a multiple of size %d", p.From, p.Size)
	}
	return nil
}

func (p Page) Offset() int {
	return p.From
}

func (p Page) Limit() int {
	return p.Size
}
