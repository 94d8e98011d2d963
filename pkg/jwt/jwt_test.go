package jwt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := Generate("s3cret", "u-1", "co-1", "corredor", "crm", 5)
	require.NoError(t, err)

	c, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, "co-1", c.CompanyID)
	assert.Equal(t, "corredor", c.Role)
	assert.Equal(t, "crm", c.Issuer)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate("s3cret", "u-1", "co-1", "admin", "crm", 5)
	require.NoError(t, err)
	_, err = Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate("s3cret", "u-1", "co-1", "admin", "crm", -1)
	require.NoError(t, err)
	_, err = Parse("s3cret", tok)
	assert.Error(t, err)
}

func TestParse_SinEmpresa(t *testing.T) {
	tok, err := Generate("s3cret", "u-1", "", "admin", "crm", 5)
	require.NoError(t, err)
	_, err = Parse("s3cret", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "u", "c", "r", "i", 1)
	assert.True(t, errors.Is(err, ErrSecretMissing))
	_, err = Parse("", "x")
	assert.True(t, errors.Is(err, ErrSecretMissing))
}
