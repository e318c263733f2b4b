package providerfake

import "errors"

var errNoScript = errors.New("fake provider: no scripted result")
