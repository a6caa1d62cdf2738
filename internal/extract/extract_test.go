package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		street     string
		postalCode string
		city       string
	}{
		{"street comma postal city", "Canalettostraße 10, 01307 Dresden", "Canalettostraße 10", "01307", "Dresden"},
		{"postal city only", "80336 München", "", "80336", "München"},
		{"leading venue name", "Caritasverband, Schäferstraße 44, 01067 Dresden", "Schäferstraße 44", "01067", "Dresden"},
		{"no postal code", "Irgendeine Straße 5", "", "", ""},
		{"empty", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			street, postalCode, city := SplitAddress(tt.input)
			assert.Equal(t, tt.street, street)
			assert.Equal(t, tt.postalCode, postalCode)
			assert.Equal(t, tt.city, city)
		})
	}
}

func TestExtractVenueFragment(t *testing.T) {
	fragment := `
		<div class="venueGoogle">
			<h2 class="kicker">Migrationsberatung</h2>
			<h4><a href="/adressen/123">Caritasverband für Dresden e.V.</a></h4>
			<p>Schäferstraße 44</p>
			<p>01067 Dresden</p>
			<span>Fon:</span><span>0351 4984-746</span>
			<span>Fax:</span><span>0351 4984-747</span>
			<a class="mail-link" href="mailto:migration@caritas-dresden.de?subject=Beratung">E-Mail</a>
			<a class="ext-link" href="https://www.caritas-dresden.de">Website</a>
		</div>`

	info := Extract(fragment)
	assert.Equal(t, "Migrationsberatung", info.ServiceType)
	assert.Equal(t, "Caritasverband für Dresden e.V.", info.Organization)
	assert.Equal(t, "Schäferstraße 44", info.Street)
	assert.Equal(t, "01067", info.PostalCode)
	assert.Equal(t, "Dresden", info.City)
	assert.Equal(t, "0351 4984-746", info.Phone)
	assert.Equal(t, "0351 4984-747", info.Fax)
	assert.Equal(t, "migration@caritas-dresden.de", info.Email)
	assert.Equal(t, "https://www.caritas-dresden.de", info.Website)
}

func TestExtractLabelInSameNode(t *testing.T) {
	fragment := `<div class="venue">
		<h3>Beratungsstelle Leipzig</h3>
		<p>Elsterstraße 15</p>
		<p>04109 Leipzig</p>
		<p>Tel: 0341 96361-0</p>
	</div>`

	info := Extract(fragment)
	assert.Equal(t, "Beratungsstelle Leipzig", info.Organization)
	assert.Equal(t, "Elsterstraße 15", info.Street)
	assert.Equal(t, "04109", info.PostalCode)
	assert.Equal(t, "Leipzig", info.City)
	assert.Equal(t, "0341 96361-0", info.Phone)
}

func TestExtractStreetSkipsContactLines(t *testing.T) {
	fragment := `<div class="venue">
		<p>Hauptstraße 1</p>
		<p>Tel: 030 123456</p>
		<p>10115 Berlin</p>
	</div>`

	info := Extract(fragment)
	assert.Equal(t, "Hauptstraße 1", info.Street)
	assert.Equal(t, "10115", info.PostalCode)
	assert.Equal(t, "Berlin", info.City)
}

func TestExtractRegexFallbacks(t *testing.T) {
	t.Run("labeled phone in flat text", func(t *testing.T) {
		info := Extract(`<p>Kontakt</p>Telefon: 0351 123456 und mehr`)
		assert.Equal(t, "0351 123456", info.Phone)
	})
	t.Run("international phone", func(t *testing.T) {
		info := Extract(`Erreichbar unter +49 351 123456 werktags`)
		assert.Equal(t, "+49 351 123456", info.Phone)
	})
	t.Run("flat comma address", func(t *testing.T) {
		info := Extract(`Beratungsstelle, Canalettostraße 10, 01307 Dresden`)
		assert.Equal(t, "Canalettostraße 10", info.Street)
		assert.Equal(t, "01307", info.PostalCode)
		assert.Equal(t, "Dresden", info.City)
	})
}

func TestExtractEmptyAndBrokenInput(t *testing.T) {
	assert.Equal(t, Info{}, Extract(""))
	assert.Equal(t, Info{}, Extract("   \n\t "))

	// Unbalanced markup must not panic and still yields what it can.
	info := Extract(`<div class="venue"><p>01067 Dresden`)
	assert.Equal(t, "01067", info.PostalCode)
	assert.Equal(t, "Dresden", info.City)
}

func TestFindEmail(t *testing.T) {
	assert.Equal(t, "info@example.org", FindEmail("mailto:info@example.org?subject=Hallo"))
	assert.Equal(t, "", FindEmail("kein-kontakt"))
}
