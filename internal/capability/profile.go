package capability

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"
)

//go:embed profile.cue
var profileSchema string

// LoadProfiles reads a YAML capability profile file.
//
// The file maps backend type keys (case-insensitive, stored upper-case) to
// capability descriptions. It is validated against the embedded CUE schema
// before decoding, so misspelled flags are rejected rather than silently
// ignored. Encoding names are checked against the IANA registry and
// canonicalized.
//
// Example:
//
//	sqlite:
//	  access_policy: read_write
//	  transactions: true
//	  dataset_type:
//	    primary_key: true
//	    index: true
//	    btree_index: true
//	  encodings: [UTF-8]
func LoadProfiles(r io.Reader) (map[string]DataSourceCapabilities, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(raw) == 0 {
		return map[string]DataSourceCapabilities{}, nil
	}

	if err := validateProfiles(raw); err != nil {
		return nil, err
	}

	var decoded map[string]DataSourceCapabilities
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	out := make(map[string]DataSourceCapabilities, len(decoded))
	for key, caps := range decoded {
		canon, err := CanonicalEncodings(caps.Encodings)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", key, err)
		}
		caps.Encodings = canon
		out[strings.ToUpper(key)] = caps
	}
	return out, nil
}

// validateProfiles unifies the decoded document with the #Profiles definition.
func validateProfiles(raw map[string]any) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(profileSchema, cue.Filename("profile.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}

	def := schemaVal.LookupPath(cue.ParsePath("#Profiles"))
	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid profiles: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// CanonicalEncodings validates names against the IANA character set registry
// and returns their canonical names, sorted and de-duplicated.
func CanonicalEncodings(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		enc, err := ianaindex.IANA.Encoding(n)
		if err != nil {
			return nil, fmt.Errorf("unknown character encoding %q", n)
		}
		canon := n
		if enc != nil {
			if c, err := ianaindex.IANA.Name(enc); err == nil {
				canon = c
			}
		}
		if !seen[canon] {
			seen[canon] = true
			out = append(out, canon)
		}
	}
	sort.Strings(out)
	return out, nil
}
