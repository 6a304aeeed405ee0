package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the document as {domain: {topic: {term: card}}},
// writing keys in document order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, domain := range d.Domains {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, domain.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, topic := range domain.Topics {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, topic.Name); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for k, term := range topic.Terms {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(&buf, term.Name); err != nil {
					return nil, err
				}
				card, err := encode(term.Card)
				if err != nil {
					return nil, fmt.Errorf("failed to encode card %q: %w", term.Name, err)
				}
				buf.Write(card)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the nested object layout, keeping key order.
// A repeated key replaces the earlier value in place.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	doc := Document{}

	err := decodeObject(dec, func(domainName string) error {
		domain := doc.Domain(domainName)
		if domain == nil {
			doc.Domains = append(doc.Domains, Domain{Name: domainName})
			domain = &doc.Domains[len(doc.Domains)-1]
		} else {
			domain.Topics = nil
		}

		return decodeObject(dec, func(topicName string) error {
			topic := domain.Topic(topicName)
			if topic == nil {
				domain.Topics = append(domain.Topics, Topic{Name: topicName})
				topic = &domain.Topics[len(domain.Topics)-1]
			} else {
				topic.Terms = nil
			}

			return decodeObject(dec, func(termName string) error {
				var card Card
				if err := dec.Decode(&card); err != nil {
					return fmt.Errorf("card %q: %w", termName, err)
				}
				if term := topic.Term(termName); term != nil {
					term.Card = card
					return nil
				}
				topic.Terms = append(topic.Terms, Term{Name: termName, Card: card})
				return nil
			})
		})
	})
	if err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after document")
	}

	*d = doc
	return nil
}

// encode marshals v without escaping HTML characters, so names are stored
// as written.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	encoded, err := encode(key)
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}
	buf.Write(encoded)
	buf.WriteByte(':')
	return nil
}

func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
