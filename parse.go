package zml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brimdata/zml/zqe"
)

// ParseType parses the String form of a type, e.g., "float32", "R4",
// "key<uint32:3>", "vector<float32,2,*>" or "image<32x32>".
func ParseType(s string) (Type, error) {
	typ, err := parseType(strings.TrimSpace(s))
	if err != nil {
		return nil, zqe.E(zqe.Invalid, "bad type %q: %w", s, err)
	}
	return typ, nil
}

func parseType(s string) (Type, error) {
	name, args, err := splitType(s)
	if err != nil {
		return nil, err
	}
	switch name {
	case "key":
		if len(args) != 1 {
			return nil, fmt.Errorf("key takes one argument")
		}
		base, count, _ := strings.Cut(args[0], ":")
		p := LookupPrimitive(base)
		if p == nil {
			return nil, fmt.Errorf("unknown key base %q", base)
		}
		n, err := parseDim(count)
		if err != nil {
			return nil, err
		}
		key := &TypeKey{Base: p.ID(), Count: n, Contiguous: true}
		return key, key.Validate()
	case "vector":
		if len(args) == 0 {
			return nil, fmt.Errorf("vector needs an item type")
		}
		item, err := parseType(args[0])
		if err != nil {
			return nil, err
		}
		switch item.(type) {
		case *TypePrimitive, *TypeKey:
		default:
			return nil, fmt.Errorf("bad vector item %s", item)
		}
		dims := make([]int, 0, len(args)-1)
		for _, arg := range args[1:] {
			d, err := parseDim(arg)
			if err != nil {
				return nil, err
			}
			dims = append(dims, d)
		}
		return NewTypeVector(item, dims...), nil
	case "image":
		if args == nil {
			return &TypeImage{}, nil
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("image takes one argument")
		}
		h, w, ok := strings.Cut(args[0], "x")
		if !ok {
			return nil, fmt.Errorf("image size must be HxW")
		}
		height, err := strconv.Atoi(h)
		if err != nil {
			return nil, err
		}
		width, err := strconv.Atoi(w)
		if err != nil {
			return nil, err
		}
		if height <= 0 || width <= 0 {
			return nil, fmt.Errorf("bad image size %s", args[0])
		}
		return &TypeImage{Height: height, Width: width}, nil
	}
	if args != nil {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if p := LookupPrimitive(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// splitType splits "name<a,b<c,d>>" into name and its top-level arguments.
// Args is nil when there are no angle brackets.
func splitType(s string) (string, []string, error) {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ">") {
		return "", nil, fmt.Errorf("missing '>'")
	}
	var args []string
	depth, start := 0, open+1
	inner := s[:len(s)-1]
	for k := start; k < len(inner); k++ {
		switch inner[k] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", nil, fmt.Errorf("unbalanced '>'")
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:k]))
				start = k + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, fmt.Errorf("unbalanced '<'")
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return s[:open], args, nil
}

func parseDim(s string) (int, error) {
	if s == "" || s == "*" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad dimension %q", s)
	}
	return n, nil
}
