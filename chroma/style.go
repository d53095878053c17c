package chroma

import (
	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/fwojciec/promptscore"
)

// StyleFromPalette maps chroma token types to token styles drawn from p.
// Generic tokens cover the diff and markdown fences models often emit.
func StyleFromPalette(p promptscore.Palette) StyleFunc {
	return func(tt chromalib.TokenType) promptscore.Style {
		switch tt {
		case chromalib.KeywordType:
			return promptscore.Style{Foreground: string(p.Type), Bold: true}
		case chromalib.NameFunction, chromalib.NameFunctionMagic, chromalib.NameClass:
			return promptscore.Style{Foreground: string(p.Function)}
		case chromalib.NameBuiltin, chromalib.NameBuiltinPseudo:
			return promptscore.Style{Foreground: string(p.Type)}
		case chromalib.NameConstant:
			return promptscore.Style{Foreground: string(p.Constant)}
		case chromalib.GenericInserted:
			return promptscore.Style{Foreground: string(p.Good)}
		case chromalib.GenericDeleted:
			return promptscore.Style{Foreground: string(p.Bad)}
		case chromalib.GenericHeading, chromalib.GenericSubheading:
			return promptscore.Style{Foreground: string(p.UIAccent), Bold: true}
		case chromalib.GenericStrong:
			return promptscore.Style{Bold: true}
		}

		switch {
		case tt.InCategory(chromalib.Keyword):
			return promptscore.Style{Foreground: string(p.Keyword), Bold: true}
		case tt.InCategory(chromalib.Comment):
			return promptscore.Style{Foreground: string(p.Comment)}
		case tt.InSubCategory(chromalib.String):
			return promptscore.Style{Foreground: string(p.String)}
		case tt.InSubCategory(chromalib.Number):
			return promptscore.Style{Foreground: string(p.Number)}
		case tt.InCategory(chromalib.Operator):
			return promptscore.Style{Foreground: string(p.Operator)}
		case tt.InCategory(chromalib.Punctuation):
			return promptscore.Style{Foreground: string(p.Punctuation)}
		default:
			return promptscore.Style{}
		}
	}
}
