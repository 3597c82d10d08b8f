package http

import (
	"errors"
	"testing"

	"github.com/indigo-web/trident/http/status"
	"github.com/stretchr/testify/require"
)

func TestResponseBuilder(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fields := NewResponse().Reveal()
		require.Equal(t, status.OK, fields.Code)
		require.Empty(t, fields.Body)
		require.False(t, fields.IsStream())
	})

	t.Run("string body", func(t *testing.T) {
		fields := NewResponse().String("Hello").Reveal()
		require.Equal(t, []byte("Hello"), fields.Body)
		require.False(t, fields.IsStream())
	})

	t.Run("stream discards sized body", func(t *testing.T) {
		resp := NewResponse().
			String("Hello").
			Stream(func(w BodyWriter) error { return nil })

		fields := resp.Reveal()
		require.True(t, fields.IsStream())
		require.Nil(t, fields.Body)
	})

	t.Run("sized body discards stream", func(t *testing.T) {
		resp := NewResponse().
			Stream(func(w BodyWriter) error { return nil }).
			String("Hello")

		fields := resp.Reveal()
		require.False(t, fields.IsStream())
		require.Equal(t, []byte("Hello"), fields.Body)
	})

	t.Run("headers accumulate", func(t *testing.T) {
		resp := NewResponse().
			Header("Vary", "Accept", "Accept-Encoding").
			Header("Server", "trident")

		require.Equal(t, 3, resp.Reveal().Headers.Len())
	})

	t.Run("error", func(t *testing.T) {
		fields := NewResponse().Error(errors.New("boom")).Reveal()
		require.Equal(t, status.InternalServerError, fields.Code)
		require.Equal(t, []byte("boom"), fields.Body)
	})

	t.Run("http error carries its code", func(t *testing.T) {
		fields := NewResponse().Error(status.ErrBadRequest).Reveal()
		require.Equal(t, status.BadRequest, fields.Code)
	})

	t.Run("json", func(t *testing.T) {
		fields := NewResponse().JSON(map[string]string{"hello": "world"}).Reveal()
		require.JSONEq(t, `{"hello":"world"}`, string(fields.Body))
		require.Equal(t, "application/json", fields.Headers.Value("content-type"))
	})

	t.Run("clear", func(t *testing.T) {
		resp := NewResponse().
			Code(status.NotFound).
			Header("Server", "trident").
			String("nope").
			Clear()

		fields := resp.Reveal()
		require.Equal(t, status.OK, fields.Code)
		require.True(t, fields.Headers.Empty())
		require.Nil(t, fields.Body)
	})
}
