// Public domain.

package gfrun

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// cacheVersion changes when the encoded Dataset layout changes.
const cacheVersion = "gammafit dataset 1"

// WriteCache writes ds as a gob file: version string, creation time,
// dataset.
func WriteCache(fn string, ds *Dataset) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	enc := gob.NewEncoder(f)
	if err = enc.Encode(cacheVersion); err == nil {
		if err = enc.Encode(time.Now()); err == nil {
			err = enc.Encode(ds)
		}
	}
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	return err
}

// ReadCache reads a file written by WriteCache.  The dataset is validated
// before it is returned.
func ReadCache(fn string) (ds *Dataset, created time.Time, err error) {
	var f *os.File
	f, err = os.Open(fn)
	if err != nil {
		return
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	var v string
	if err = dec.Decode(&v); err != nil {
		return
	}
	if v != cacheVersion {
		err = fmt.Errorf("%s: cache version %q, want %q", fn, v, cacheVersion)
		return
	}
	if err = dec.Decode(&created); err != nil {
		return
	}
	ds = new(Dataset)
	if err = dec.Decode(ds); err != nil {
		return nil, created, err
	}
	if err = ds.Validate(); err != nil {
		return nil, created, err
	}
	return
}
