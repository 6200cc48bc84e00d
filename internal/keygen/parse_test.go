package keygen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/seo-linker/internal/linker"
)

func TestParseReply(t *testing.T) {
	t.Parallel()

	reply := "Here are your keywords:\n" +
		"Cloud Speicher, https://example.com/cloud\n" +
		"1. Daten Migration, https://example.com/migrate\n" +
		"- Backup, https://example.com/backup?a=1,2\n" +
		"2) Server,https://example.com/server\n" +
		", https://example.com/orphan\n" +
		"Leer,   \n" +
		"2024 Trends, https://example.com/trends\n"

	assert.Equal(t, []linker.Association{
		{Keyword: "Cloud Speicher", URL: "https://example.com/cloud"},
		{Keyword: "Daten Migration", URL: "https://example.com/migrate"},
		{Keyword: "Backup", URL: "https://example.com/backup?a=1,2"},
		{Keyword: "Server", URL: "https://example.com/server"},
		{Keyword: "2024 Trends", URL: "https://example.com/trends"},
	}, ParseReply(reply))
}

func TestParseReplyEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseReply(""))
	assert.Nil(t, ParseReply("no pairs here\nat all"))
}
