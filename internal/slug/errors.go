package slug

import "errors"

var ErrExhausted = errors.New("slug: no free suffix")
