/*
Copyright © 2019 the Rootzone authors.
This file is part of Rootzone.

Rootzone is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Rootzone is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Rootzone.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash derives cache keys from arbitrary values, so that
// repeated simulation requests with identical inputs can be matched
// without comparing the inputs field by field.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// fallbackPrinter renders values that gob cannot encode (for example
// values containing NaNs) into a stable textual form.
var fallbackPrinter = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a key for the specified object. Objects that implement
// fmt.Stringer choose their own key.
func Hash(object interface{}) string {
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	h := fnv.New128a()
	if err := gob.NewEncoder(h).Encode(object); err != nil {
		fallbackPrinter.Fprintf(h, "%#v", object)
	}
	key := h.Sum([]byte{})
	return fmt.Sprintf("%x", key[0:h.Size()])
}
