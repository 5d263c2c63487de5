package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierhub/internal/notify"
)

func TestRenderAllTemplates(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	cases := map[notify.Template]string{
		notify.TemplateContactRequestNotification: "New Contact Request - VEXIM",
		notify.TemplateContactRequestReceived:     "Contact Request Received - VEXIM",
		notify.TemplateContactResponse:            "Supplier Response - VEXIM",
		notify.TemplateContactForwarded:           "New Contact Request - VEXIM",
		notify.TemplateContactApproved:            "Contact Request Forwarded - VEXIM",
		notify.TemplateContactRejected:            "Contact Request Update - VEXIM",
		notify.TemplateContactUnlocked:            "Buyer Contact Unlocked - VEXIM",
	}
	for name, subject := range cases {
		t.Run(string(name), func(t *testing.T) {
			out, err := r.Render(name, map[string]string{
				"supplier_company": "Acme Steel",
				"contact_person":   "Jane",
			})
			require.NoError(t, err)
			assert.Equal(t, subject, out.Subject)
			assert.Contains(t, out.HTML, "<!DOCTYPE html>")
		})
	}
}

func TestRenderEscapesInput(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.Render(notify.TemplateContactRequestNotification, map[string]string{
		"message": `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "<script>")
	assert.Contains(t, out.HTML, "&lt;script&gt;")
}

func TestRenderOptionalFields(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	without, err := r.Render(notify.TemplateContactUnlocked, map[string]string{"email": "a@b.co"})
	require.NoError(t, err)
	assert.NotContains(t, without.HTML, "Phone:")

	with, err := r.Render(notify.TemplateContactUnlocked, map[string]string{"email": "a@b.co", "phone": "+15550100"})
	require.NoError(t, err)
	assert.Contains(t, with.HTML, "+15550100")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	_, err = r.Render(notify.Template("nope"), nil)
	assert.ErrorIs(t, err, notify.ErrUnknownTemplate)
}
