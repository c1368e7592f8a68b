package corenlp

import (
	"log/slog"

	"github.com/hrygo/timextag/plugin/temporal"
)

// document is the subset of the CoreNLP JSON output used here.
type document struct {
	Sentences []sentence `json:"sentences"`
}

type sentence struct {
	Index          int             `json:"index"`
	Tokens         []token         `json:"tokens"`
	EntityMentions []entityMention `json:"entitymentions"`
}

type token struct {
	Index                int    `json:"index"`
	Word                 string `json:"word"`
	OriginalText         string `json:"originalText"`
	CharacterOffsetBegin int    `json:"characterOffsetBegin"`
	CharacterOffsetEnd   int    `json:"characterOffsetEnd"`
}

type entityMention struct {
	TokenBegin           int    `json:"tokenBegin"`
	TokenEnd             int    `json:"tokenEnd"`
	Text                 string `json:"text"`
	CharacterOffsetBegin int    `json:"characterOffsetBegin"`
	CharacterOffsetEnd   int    `json:"characterOffsetEnd"`
	NER                  string `json:"ner"`
	Timex                *timex `json:"timex"`
}

type timex struct {
	TID   string `json:"tid"`
	Type  string `json:"type"`
	Value string `json:"value"`
	// AltValue is set for expressions without a resolvable value (e.g. "XXXX-WXX-2").
	AltValue string `json:"altValue"`
}

// expressions collects temporal mentions across sentences in document order.
// Each mention keeps its constituent tokens so the mapper can read the span
// from the first and last token.
func (d *document) expressions(index *offsetIndex) []temporal.Expression {
	var result []temporal.Expression
	for _, s := range d.Sentences {
		for _, m := range s.EntityMentions {
			if m.Timex == nil {
				continue
			}
			typ := temporal.TimexType(m.Timex.Type)
			if !typ.Valid() {
				slog.Warn("corenlp mention has an unknown timex type",
					"sentence", s.Index,
					"tid", m.Timex.TID,
					"type", m.Timex.Type,
				)
				continue
			}
			result = append(result, temporal.Expression{
				TID:      m.Timex.TID,
				Text:     m.Text,
				Tokens:   s.mentionTokens(m, index),
				Type:     typ,
				Value:    m.Timex.Value,
				AltValue: m.Timex.AltValue,
			})
		}
	}
	return result
}

// mentionTokens returns the sentence tokens in [tokenBegin, tokenEnd).
// When the token range is unusable the mention's own character offsets are used.
func (s *sentence) mentionTokens(m entityMention, index *offsetIndex) []temporal.Token {
	if m.TokenBegin >= 0 && m.TokenEnd <= len(s.Tokens) && m.TokenBegin < m.TokenEnd {
		tokens := make([]temporal.Token, 0, m.TokenEnd-m.TokenBegin)
		for _, t := range s.Tokens[m.TokenBegin:m.TokenEnd] {
			tokens = append(tokens, temporal.Token{
				Begin: index.rune(t.CharacterOffsetBegin),
				End:   index.rune(t.CharacterOffsetEnd),
				Text:  t.OriginalText,
			})
		}
		return tokens
	}

	slog.Warn("corenlp mention has no usable token range",
		"sentence", s.Index,
		"token_begin", m.TokenBegin,
		"token_end", m.TokenEnd,
	)
	return []temporal.Token{{
		Begin: index.rune(m.CharacterOffsetBegin),
		End:   index.rune(m.CharacterOffsetEnd),
		Text:  m.Text,
	}}
}
