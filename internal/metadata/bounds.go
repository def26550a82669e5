package metadata

import (
	"bytes"
	"fmt"
	"io"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// checkBounds walks the SCALE layout of a V14 metadata body (the bytes after
// the magic number and version) without allocating anything. Every vector,
// string and byte-blob length must fit in the bytes that remain, since each
// element occupies at least one byte.
//
// The reflection decoder sizes slices directly from these lengths, so a blob
// that passes this check cannot make it allocate more elements than the blob
// has bytes.
func checkBounds(body []byte) error {
	r := bytes.NewReader(body)
	s := &scanner{r: r, d: scale.NewDecoder(r)}
	if err := s.metadataV14(); err != nil {
		return fmt.Errorf("%w: at byte %d: %v", ErrUndecodable, len(body)-r.Len()+5, err)
	}
	return nil
}

type scanner struct {
	r *bytes.Reader
	d *scale.Decoder
}

func (s *scanner) u8() (byte, error) {
	return s.d.ReadOneByte()
}

func (s *scanner) skip(n int) error {
	if n > s.r.Len() {
		return fmt.Errorf("need %d bytes, %d left", n, s.r.Len())
	}
	_, err := s.r.Seek(int64(n), io.SeekCurrent)
	return err
}

func (s *scanner) compact() error {
	_, err := s.d.DecodeUintCompact()
	return err
}

// length reads a compact length prefix and bounds it by the bytes left.
func (s *scanner) length(what string) (int, error) {
	n, err := s.d.DecodeUintCompact()
	if err != nil {
		return 0, fmt.Errorf("%s length: %w", what, err)
	}
	if !n.IsUint64() || n.Uint64() > uint64(s.r.Len()) {
		return 0, fmt.Errorf("%s length %s exceeds the %d bytes left", what, n.String(), s.r.Len())
	}
	return int(n.Uint64()), nil
}

// text covers Text and Bytes, both a length-prefixed run of bytes.
func (s *scanner) text(what string) error {
	n, err := s.length(what)
	if err != nil {
		return err
	}
	return s.skip(n)
}

func (s *scanner) vec(what string, elem func() error) error {
	n, err := s.length(what)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := elem(); err != nil {
			return fmt.Errorf("%s[%d]: %w", what, i, err)
		}
	}
	return nil
}

func (s *scanner) option(what string, elem func() error) error {
	tag, err := s.u8()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	switch tag {
	case 0:
		return nil
	case 1:
		return elem()
	default:
		return fmt.Errorf("%s: option tag %d", what, tag)
	}
}

func (s *scanner) docs() error {
	return s.vec("docs", func() error { return s.text("doc") })
}

func (s *scanner) metadataV14() error {
	if err := s.vec("types", s.portableType); err != nil {
		return err
	}
	if err := s.vec("pallets", s.pallet); err != nil {
		return err
	}
	if err := s.extrinsic(); err != nil {
		return err
	}
	return s.compact()
}

func (s *scanner) portableType() error {
	if err := s.compact(); err != nil {
		return err
	}
	if err := s.vec("path", func() error { return s.text("segment") }); err != nil {
		return err
	}
	if err := s.vec("params", func() error {
		if err := s.text("name"); err != nil {
			return err
		}
		return s.option("type", s.compact)
	}); err != nil {
		return err
	}
	if err := s.typeDef(); err != nil {
		return err
	}
	return s.docs()
}

func (s *scanner) typeDef() error {
	tag, err := s.u8()
	if err != nil {
		return err
	}
	switch tag {
	case 0: // Composite
		return s.vec("fields", s.field)
	case 1: // Variant
		return s.vec("variants", func() error {
			if err := s.text("name"); err != nil {
				return err
			}
			if err := s.vec("fields", s.field); err != nil {
				return err
			}
			if _, err := s.u8(); err != nil {
				return err
			}
			return s.docs()
		})
	case 2, 6: // Sequence, Compact
		return s.compact()
	case 3: // Array
		if err := s.skip(4); err != nil {
			return err
		}
		return s.compact()
	case 4: // Tuple
		return s.vec("tuple", s.compact)
	case 5: // Primitive
		_, err := s.u8()
		return err
	case 7: // BitSequence
		if err := s.compact(); err != nil {
			return err
		}
		return s.compact()
	case 8: // HistoricMetaCompat
		return s.text("type")
	default:
		return fmt.Errorf("type definition tag %d", tag)
	}
}

func (s *scanner) field() error {
	if err := s.option("name", func() error { return s.text("name") }); err != nil {
		return err
	}
	if err := s.compact(); err != nil {
		return err
	}
	if err := s.option("typeName", func() error { return s.text("typeName") }); err != nil {
		return err
	}
	return s.docs()
}

func (s *scanner) pallet() error {
	if err := s.text("name"); err != nil {
		return err
	}
	if err := s.option("storage", s.storage); err != nil {
		return err
	}
	if err := s.option("calls", s.compact); err != nil {
		return err
	}
	if err := s.option("events", s.compact); err != nil {
		return err
	}
	if err := s.vec("constants", func() error {
		if err := s.text("name"); err != nil {
			return err
		}
		if err := s.compact(); err != nil {
			return err
		}
		if err := s.text("value"); err != nil {
			return err
		}
		return s.docs()
	}); err != nil {
		return err
	}
	if err := s.option("errors", s.compact); err != nil {
		return err
	}
	_, err := s.u8()
	return err
}

func (s *scanner) storage() error {
	if err := s.text("prefix"); err != nil {
		return err
	}
	return s.vec("items", func() error {
		if err := s.text("name"); err != nil {
			return err
		}
		if _, err := s.u8(); err != nil {
			return err
		}
		tag, err := s.u8()
		if err != nil {
			return err
		}
		switch tag {
		case 0: // Plain
			err = s.compact()
		case 1: // Map
			err = s.vec("hashers", func() error {
				_, err := s.u8()
				return err
			})
			if err == nil {
				err = s.compact()
			}
			if err == nil {
				err = s.compact()
			}
		default:
			err = fmt.Errorf("storage entry type tag %d", tag)
		}
		if err != nil {
			return err
		}
		if err := s.text("fallback"); err != nil {
			return err
		}
		return s.docs()
	})
}

func (s *scanner) extrinsic() error {
	if err := s.compact(); err != nil {
		return err
	}
	if _, err := s.u8(); err != nil {
		return err
	}
	return s.vec("signedExtensions", func() error {
		if err := s.text("identifier"); err != nil {
			return err
		}
		if err := s.compact(); err != nil {
			return err
		}
		return s.compact()
	})
}
