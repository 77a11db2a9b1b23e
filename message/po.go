package message

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// ContextSeparator joins a msgctxt and its msgid into a
// message id.
const ContextSeparator = "|"

var errNoPOEntry = errors.New("no msgid entry in catalog")

type poKey struct {
	ctx string
	id  string
}

// parsePO reads a gettext catalog or template. The msgid
// is both the id and the default text; entries with a
// msgctxt are identified as "<msgctxt>|<msgid>".
func parsePO(data []byte) ([]Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	keys, err := scanPO(string(data))
	if err != nil {
		return nil, err
	}

	po := gotext.NewPo()
	po.Parse(data)

	dom := po.GetDomain()
	trs := dom.GetTranslations()
	ctxTrs := dom.GetCtxTranslations()

	out := make([]Message, 0, len(keys))

	for _, k := range keys {
		// The empty msgid holds the catalog header.
		if k.id == "" && k.ctx == "" {
			continue
		}

		tr := trs[k.id]
		m := Message{ID: k.id, DefaultMessage: k.id}

		if k.ctx != "" {
			tr = ctxTrs[k.ctx][k.id]
			m.ID = k.ctx + ContextSeparator + k.id
			m.Context = k.ctx
		}

		if tr != nil {
			m.Plural = tr.PluralID
		}

		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// scanPO checks the catalog line by line and returns the
// entry keys in file order. It rejects lines that are
// neither keywords, strings nor comments, strings that do
// not unquote, and a msgctxt/msgid pair declared twice.
func scanPO(src string) ([]poKey, error) {
	var (
		keys    []poKey
		seen    = map[poKey]int{}
		cur     poKey
		field   string
		entryAt int
	)

	closeEntry := func() error {
		if field == "" {
			return nil
		}

		if field == "msgctxt" || field == "msgid" {
			return fmt.Errorf(
				"line %d: entry has no msgstr", entryAt,
			)
		}

		if prev, dup := seen[cur]; dup {
			return fmt.Errorf(
				"line %d: %w: %q already declared at line %d",
				entryAt, ErrDuplicateMessageID, cur.id, prev,
			)
		}

		seen[cur] = entryAt
		keys = append(keys, cur)
		cur, field = poKey{}, ""

		return nil
	}

	for i, raw := range strings.Split(src, "\n") {
		n := i + 1
		l := strings.TrimSpace(raw)

		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}

		if strings.HasPrefix(l, `"`) {
			s, err := strconv.Unquote(l)
			if err != nil {
				return nil, fmt.Errorf("line %d: malformed string", n)
			}

			switch field {
			case "":
				return nil, fmt.Errorf(
					"line %d: string outside an entry", n,
				)
			case "msgctxt":
				cur.ctx += s
			case "msgid":
				cur.id += s
			}

			continue
		}

		kw, rest, _ := strings.Cut(l, " ")

		s, err := strconv.Unquote(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf(
				"line %d: malformed %s string", n, kw,
			)
		}

		switch {
		case kw == "msgctxt":
			if err := closeEntry(); err != nil {
				return nil, err
			}

			cur.ctx, field, entryAt = s, kw, n
		case kw == "msgid":
			if field != "msgctxt" {
				if err := closeEntry(); err != nil {
					return nil, err
				}

				entryAt = n
			}

			cur.id, field = s, kw
		case kw == "msgid_plural":
			if field != "msgid" {
				return nil, fmt.Errorf(
					"line %d: msgid_plural without msgid", n,
				)
			}

			field = kw
		case kw == "msgstr" || strings.HasPrefix(kw, "msgstr["):
			if field == "" || field == "msgctxt" {
				return nil, fmt.Errorf(
					"line %d: msgstr without msgid", n,
				)
			}

			field = "msgstr"
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", n, kw)
		}
	}

	if err := closeEntry(); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, errNoPOEntry
	}

	return keys, nil
}
