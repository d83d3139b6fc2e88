package illustration

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// HouseStyle is the fixed illustration style every brand image follows.
const HouseStyle = "Flat vector illustration in the corporate brand style: clean rounded shapes, " +
	"thick uniform outlines, no gradients, no photographic textures, no shadows beyond a single soft flat shadow, " +
	"friendly proportions and a transparent background. Use the brand palette led by orange #FF6200 " +
	"with accents from #89D6FD, #4D0020 and #F689FD."

const caricaturePrompt = "Externia caricatura a Humoristic caricature"

var artistPrompts = map[string]string{
	"picasso": `Transforma esta imagen en una obra al estilo de Pablo Picasso:
- **Cubismo**: Deconstruye y reorganiza las formas en estructuras geométricas, mostrando múltiples perspectivas a la vez.
- **Paleta de color**: Utiliza tonos apagados como marrones, grises y negros.
- **Líneas y planos**: Usa líneas definidas y planos superpuestos.
- **Influencia de sus periodos Azul y Rosa**.`,
	"salvador dali": `Transforma esta imagen en una obra al estilo de Salvador Dalí:
- **Surrealismo**: Incorpora elementos oníricos y paisajes distorsionados.
- **Colores vivos** y detalles realistas con formas imposibles o fantásticas.
- **Relojes derretidos** o referencias a objetos surrealistas.`,
	"diego velazquez": `Transform this image into a painting in the style of Diego Velázquez. Use detailed realism, dramatic Baroque lighting, and a rich, atmospheric background inspired by Velázquez’s masterpieces. The scene must include a dark, elegant, and subtle background, emphasizing depth and the painter’s classic mood.`,
	"joaquin sorolla": `Transforma esta imagen en una obra al estilo de Joaquín Sorolla:
- **Impresionismo español**: Utiliza pinceladas sueltas y luminosas.
- **Colores vivos y claros** para capturar la luz mediterránea.
- **Escenas al aire libre o costeras**.`,
}

// Artists returns the accepted artist names, sorted.
func Artists() []string {
	names := make([]string, 0, len(artistPrompts))
	for name := range artistPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArtistPrompt returns the style prompt for artist.
func ArtistPrompt(artist string) (string, error) {
	prompt, ok := artistPrompts[strings.ToLower(strings.TrimSpace(artist))]
	if !ok {
		return "", apperrors.Validation("Invalid or missing artist for mode 'pintor'")
	}
	return prompt, nil
}

// DescriptionInstruction asks the vision model for a bounded description of the photo.
func DescriptionInstruction(maxChars int) string {
	return fmt.Sprintf("Describe the main subject of this photo for an illustrator in at most %d characters. "+
		"Mention pose, clothing, objects held and overall composition. Do not describe the photo quality or the background in detail. "+
		"Do not identify real people.", maxChars)
}

// BrandPrompt combines the description, the house style and the selected references.
func BrandPrompt(description string, refs []catalog.BrandReference) string {
	var sb strings.Builder
	sb.WriteString("Create a brand illustration based on the first attached photo.\n\n")
	sb.WriteString("Subject: ")
	sb.WriteString(strings.TrimSpace(description))
	sb.WriteString("\n\nStyle: ")
	sb.WriteString(HouseStyle)
	if len(refs) > 0 {
		titles := make([]string, len(refs))
		attached := 0
		for i, r := range refs {
			titles[i] = r.Title
			if r.URL != "" {
				attached++
			}
		}
		sb.WriteString("\n\nBrand-kit references: ")
		sb.WriteString(strings.Join(titles, ", "))
		sb.WriteString(".")
		if attached > 0 {
			sb.WriteString(" The remaining attached images are these brand-kit icons; match their line weight, shapes and colour use. Do not copy them literally.")
		}
	}
	sb.WriteString("\n\nKeep the subject recognisable and centred. No text in the image.")
	return sb.String()
}
