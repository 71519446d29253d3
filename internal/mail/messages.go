package mail

import (
	"fmt"
	"html"
	"strings"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

// Messages are bilingual (Romanian first, then English).

func RegistrationReceived(p trailrace.Participant, r trailrace.Race) Message {
	race := r.Name.In("ro")
	subject := fmt.Sprintf("Înscriere primită / Registration received: %s (%s)", race, p.BibNumber)

	text := fmt.Sprintf(`Bună %s,

Am primit înscrierea ta la %s.
Număr de concurs: %s
Taxă de participare: %.2f lei
Înscrierea devine confirmată după plata taxei.

---

Hi %s,

We received your registration for %s.
Bib number: %s
Entry fee: %.2f RON
Your registration is confirmed once the fee is paid.
`, p.FirstName, race, p.BibNumber, r.Price, p.FirstName, r.Name.In("en"), p.BibNumber, r.Price)

	return Message{
		To:      Address{Name: p.FullName(), Email: p.Email},
		Subject: subject,
		Text:    text,
		HTML:    textToHTML(text),
	}
}

func PaymentConfirmed(p trailrace.Participant, r trailrace.Race) Message {
	race := r.Name.In("ro")
	subject := fmt.Sprintf("Plată confirmată / Payment confirmed: %s (%s)", race, p.BibNumber)

	text := fmt.Sprintf(`Bună %s,

Plata pentru %s a fost confirmată. Ne vedem la start!
Număr de concurs: %s

---

Hi %s,

Your payment for %s is confirmed. See you at the start line!
Bib number: %s
`, p.FirstName, race, p.BibNumber, p.FirstName, r.Name.In("en"), p.BibNumber)

	return Message{
		To:      Address{Name: p.FullName(), Email: p.Email},
		Subject: subject,
		Text:    text,
		HTML:    textToHTML(text),
	}
}

// ContactForward relays a contact form submission to the organizer with
// Reply-To set to the sender.
func ContactForward(c trailrace.ContactInquiry, organizer string) Message {
	text := fmt.Sprintf("De la / From: %s <%s>\nSubiect / Subject: %s\n\n%s\n", c.Name, c.Email, c.Subject, c.Message)
	return Message{
		To:      Address{Email: organizer},
		ReplyTo: &Address{Name: c.Name, Email: c.Email},
		Subject: "[Contact] " + c.Subject,
		Text:    text,
		HTML:    textToHTML(text),
	}
}

func TestMessage(to string) Message {
	text := "Acesta este un email de test. / This is a test email.\n"
	return Message{
		To:      Address{Email: to},
		Subject: "Test email",
		Text:    text,
		HTML:    textToHTML(text),
	}
}

func textToHTML(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}
