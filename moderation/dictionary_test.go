package moderation

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"pulsechat/errors"
)

func TestDefaultDictionaries(t *testing.T) {
	req := require.New(t)

	dictionaries, err := DefaultDictionaries()
	req.NoError(err)
	req.Contains(dictionaries, "en")
	req.Contains(dictionaries, "fr")
	req.NotEmpty(dictionaries["en"])
	req.NotEmpty(dictionaries["fr"])
}

func TestLoadDictionaries(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":     {Data: []byte("damn\n\ncrap\ndamn\r\n")},
		"words/fr.txt":     {Data: []byte("merde\n")},
		"words/empty.txt":  {Data: []byte("\n\n")},
		"words/README.md":  {Data: []byte("not a dictionary")},
		"words/sub/xx.txt": {Data: []byte("nested is ignored")},
	}

	dictionaries, err := LoadDictionaries(fsys, "words")
	req.NoError(err)
	req.Len(dictionaries, 2)
	req.ElementsMatch([]string{"damn", "crap"}, dictionaries["en"])
	req.Equal([]string{"merde"}, dictionaries["fr"])
}

func TestLoadDictionaries_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt": {Data: []byte("\n \n")},
	}

	_, err := LoadDictionaries(fsys, "words")
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = LoadDictionaries(fsys, "missing")
	req.Error(err)
}
