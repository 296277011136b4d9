// Package plan implements the destination-path template language and
// duplicate/collision resolver (spec.md section 4.4): it turns an
// EnrichedFile plus a path template into a DestinationPlan.
package plan

import (
    "fmt"
    "strings"

    "github.com/hbollon/go-edlib"

    "github.com/dsoprea/go-photocopy/enrich"
)

// tokenKind distinguishes the three token shapes a template may contain.
type tokenKind int

const (
    tokenPlain tokenKind = iota
    tokenFallback
    tokenConditional
)

// token is one parsed `{...}` placeholder. literal segments between tokens
// are carried by Template.segments directly as plain strings.
type token struct {
    kind      tokenKind
    name      string
    fallback  string // tokenFallback / tokenConditional else-literal
    predicate string // tokenConditional only
}

// segment is either a literal path fragment or a parsed token.
type segment struct {
    literal string
    tok     *token
}

// Template is a parsed destination-path template, ready for repeated
// expansion against many EnrichedFiles.
type Template struct {
    raw      string
    segments []segment
}

var plainTokenNames = map[string]bool{
    "year": true, "month": true, "day": true, "hour": true, "minute": true,
    "name": true, "ext": true, "directory": true,
    "camera_make": true, "camera_model": true,
    "city": true, "district": true, "county": true, "state": true, "country": true,
}

var predicateNames = map[string]bool{
    "hasGps": true, "hasLocation": true, "hasCity": true, "hasDate": true,
}

// typoSuggestions lists the canonical single-edit corrections spec.md
// section 4.4.1 names explicitly.
var typoSuggestions = map[string]string{
    "yeaar": "year", "mnth": "month", "dat": "day", "nmae": "name",
    "citi": "city", "countri": "country", "stat": "state",
}

// ParseTemplate parses raw into a Template, rejecting unbalanced braces
// and unknown token names (with a typo suggestion when one single-edit
// match exists).
func ParseTemplate(raw string) (*Template, error) {
    t := &Template{raw: raw}

    var buf strings.Builder
    i := 0
    for i < len(raw) {
        c := raw[i]
        switch c {
        case '{':
            if buf.Len() > 0 {
                t.segments = append(t.segments, segment{literal: buf.String()})
                buf.Reset()
            }
            end := strings.IndexByte(raw[i:], '}')
            if end < 0 {
                return nil, fmt.Errorf("unbalanced brace: unterminated token starting at offset %d", i)
            }
            end += i
            body := raw[i+1 : end]
            tok, err := parseTokenBody(body)
            if err != nil {
                return nil, err
            }
            t.segments = append(t.segments, segment{tok: tok})
            i = end + 1

        case '}':
            return nil, fmt.Errorf("unbalanced brace: stray '}' at offset %d", i)

        default:
            buf.WriteByte(c)
            i++
        }
    }
    if buf.Len() > 0 {
        t.segments = append(t.segments, segment{literal: buf.String()})
    }

    return t, nil
}

func parseTokenBody(body string) (*token, error) {
    if qIdx := strings.IndexByte(body, '?'); qIdx >= 0 {
        name := body[:qIdx]
        rest := body[qIdx+1:]
        cIdx := strings.IndexByte(rest, ':')
        if cIdx < 0 {
            return nil, fmt.Errorf("malformed conditional token {%s}: missing ':' before else-literal", body)
        }
        predicate := rest[:cIdx]
        elseLiteral := rest[cIdx+1:]

        if err := validateTokenName(name); err != nil {
            return nil, err
        }
        if !predicateNames[predicate] {
            return nil, fmt.Errorf("unknown predicate %q in token {%s}", predicate, body)
        }

        return &token{kind: tokenConditional, name: name, predicate: predicate, fallback: elseLiteral}, nil
    }

    if cIdx := strings.IndexByte(body, ':'); cIdx >= 0 {
        name := body[:cIdx]
        fallback := body[cIdx+1:]
        if err := validateTokenName(name); err != nil {
            return nil, err
        }
        return &token{kind: tokenFallback, name: name, fallback: fallback}, nil
    }

    if err := validateTokenName(body); err != nil {
        return nil, err
    }
    return &token{kind: tokenPlain, name: body}, nil
}

func validateTokenName(name string) error {
    if plainTokenNames[name] {
        return nil
    }
    if suggestion, ok := typoSuggestions[name]; ok {
        return fmt.Errorf("unknown token {%s}, did you mean {%s}?", name, suggestion)
    }
    if suggestion, ok := suggestSingleEdit(name); ok {
        return fmt.Errorf("unknown token {%s}, did you mean {%s}?", name, suggestion)
    }
    return fmt.Errorf("unknown token {%s}", name)
}

// suggestSingleEdit finds a known token name exactly one Levenshtein edit
// away from name, grounded on the single-edit Damerau-Levenshtein match
// spec.md requires; go-edlib's LevenshteinDistance (no transposition
// operation) approximates Damerau-Levenshtein here. It does not match
// transpositions; the one named typo of that kind, "nmae", is listed in
// typoSuggestions, which validateTokenName consults first.
func suggestSingleEdit(name string) (string, bool) {
    for candidate := range plainTokenNames {
        if edlib.LevenshteinDistance(name, candidate) == 1 {
            return candidate, true
        }
    }
    return "", false
}

// CasingPolicy controls post-substitution path-segment casing.
type CasingPolicy int

const (
    CasingPreserve CasingPolicy = iota
    CasingLower
    CasingTitle
)

const unsafeChars = `<>:"/\|?*`

// sanitizeValue replaces unsafe characters and ASCII control characters
// with '_', per spec.md section 4.4.1.
func sanitizeValue(value string) string {
    var b strings.Builder
    for _, r := range value {
        if r < 0x20 || r == 0x7f || strings.ContainsRune(unsafeChars, r) {
            b.WriteByte('_')
            continue
        }
        b.WriteRune(r)
    }
    return b.String()
}

func applyCasing(segment string, policy CasingPolicy) string {
    switch policy {
    case CasingLower:
        return strings.ToLower(segment)
    case CasingTitle:
        return strings.Title(segment)
    default:
        return segment
    }
}

// Expand substitutes every token against ef and returns the resulting
// path, with unsafe characters replaced and casing applied per-segment.
func (t *Template) Expand(ef *enrich.EnrichedFile, casing CasingPolicy) string {
    var raw strings.Builder
    for _, seg := range t.segments {
        if seg.tok == nil {
            raw.WriteString(seg.literal)
            continue
        }
        raw.WriteString(sanitizeValue(expandToken(*seg.tok, ef)))
    }

    parts := strings.Split(filepathToSlash(raw.String()), "/")
    for i, p := range parts {
        parts[i] = applyCasing(p, casing)
    }
    return strings.Join(parts, "/")
}

func filepathToSlash(s string) string {
    return strings.ReplaceAll(s, `\`, "/")
}
