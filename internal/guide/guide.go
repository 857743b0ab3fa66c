// Package guide turns an aggregated destination bundle into a short
// Portuguese travel narrative, via an LLM when configured and a sectioned
// template otherwise.
package guide

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/city"
)

// Backend produces text for a system instruction and user prompt.
type Backend interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Generator composes the narrative. With no backend, or when the backend
// fails, it falls back to a deterministic template built only from the
// sections actually present in the bundle.
type Generator struct {
	backend Backend
	log     *slog.Logger
}

func NewGenerator(backend Backend, log *slog.Logger) *Generator {
	return &Generator{backend: backend, log: log}
}

// Generate never returns an error: a backend failure is logged and the
// fallback text is returned instead.
func (g *Generator) Generate(ctx context.Context, c *city.City, b *bundle.Bundle) string {
	if g.backend != nil {
		text, err := g.backend.GenerateText(ctx, systemPrompt, userPrompt(c, b))
		if err != nil {
			g.log.Warn("guide generation failed, using template", "city", c.Name, "err", err)
		} else if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return fallbackText(c, b)
}

const systemPrompt = `Você é um guia de viagens brasileiro. Escreva um resumo ` +
	`curto e útil (3 a 5 parágrafos) sobre o destino, em português, usando apenas ` +
	`as informações fornecidas. Não invente preços, temperaturas ou atrações que ` +
	`não estejam nos dados. Seja direto e prático.`

func userPrompt(c *city.City, b *bundle.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Destino: %s, %s, %s\n", c.Name, c.State, c.Country)

	if b.CityInfo != nil && b.CityInfo.Extract != "" {
		fmt.Fprintf(&sb, "\nSobre a cidade:\n%s\n", b.CityInfo.Extract)
	}
	if w := b.Weather; w != nil {
		if w.Current != nil {
			fmt.Fprintf(&sb, "\nClima atual: %.1f°C, %s, umidade %d%%\n",
				w.Current.Temperature, w.Current.Description, w.Current.Humidity)
		}
		if len(w.Forecast) > 0 {
			sb.WriteString("Previsão para os próximos dias:\n")
			for _, d := range w.Forecast {
				fmt.Fprintf(&sb, "- %s: %.0f a %.0f°C, %s, chance de chuva %.0f%%\n",
					d.Date.Format("02/01"), d.TemperatureMin, d.TemperatureMax,
					d.Description, d.ChanceOfRain*100)
			}
		}
		if w.Seasonal != nil {
			fmt.Fprintf(&sb, "Estação (%s): temperatura típica %.0f°C, chuva média %.0fmm. %s\n",
				w.Seasonal.Season, w.Seasonal.AverageTemperature, w.Seasonal.AverageRainfall, w.Seasonal.Description)
		}
	}
	if costs := b.Costs; costs != nil {
		if costs.DailyBudget != nil {
			fmt.Fprintf(&sb, "\nOrçamento diário (R$): econômico %.0f, intermediário %.0f, luxo %.0f\n",
				costs.DailyBudget.Budget, costs.DailyBudget.MidRange, costs.DailyBudget.Luxury)
		}
		if costs.TotalEstimate != nil {
			fmt.Fprintf(&sb, "Custo total estimado da viagem (R$): %.0f a %.0f, %d noites\n",
				costs.TotalEstimate.Min, costs.TotalEstimate.Max, costs.Nights)
		}
	}
	if len(b.Hotels) > 0 {
		sb.WriteString("\nHospedagens encontradas:\n")
		for _, h := range b.Hotels {
			if h.PricePerNight != nil {
				fmt.Fprintf(&sb, "- %s (R$ %.0f/noite)\n", h.Name, *h.PricePerNight)
			} else {
				fmt.Fprintf(&sb, "- %s\n", h.Name)
			}
		}
	}
	return sb.String()
}

// fallbackText assembles the narrative from whichever sections the bundle
// carries, skipping absent ones entirely.
func fallbackText(c *city.City, b *bundle.Bundle) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s, %s", c.Name, c.State))

	if b.CityInfo != nil && b.CityInfo.Extract != "" {
		parts = append(parts, b.CityInfo.Extract)
	}
	if w := b.Weather; w != nil {
		if w.Current != nil {
			parts = append(parts, fmt.Sprintf("Clima agora: %.1f°C, %s.",
				w.Current.Temperature, w.Current.Description))
		}
		if len(w.Forecast) > 0 {
			days := make([]string, 0, len(w.Forecast))
			for _, d := range w.Forecast {
				days = append(days, fmt.Sprintf("%s: %.0f a %.0f°C, %s",
					d.Date.Format("02/01"), d.TemperatureMin, d.TemperatureMax, d.Description))
			}
			parts = append(parts, "Previsão: "+strings.Join(days, "; ")+".")
		}
		if w.Seasonal != nil {
			parts = append(parts, fmt.Sprintf("Nesta época do ano (%s), espere em média %.0f°C. %s",
				w.Seasonal.Season, w.Seasonal.AverageTemperature, w.Seasonal.Description))
		}
	}
	if costs := b.Costs; costs != nil && costs.DailyBudget != nil {
		parts = append(parts, fmt.Sprintf(
			"Orçamento diário estimado: R$ %.0f no estilo econômico, R$ %.0f intermediário e R$ %.0f com luxo.",
			costs.DailyBudget.Budget, costs.DailyBudget.MidRange, costs.DailyBudget.Luxury))
		if costs.TotalEstimate != nil {
			parts = append(parts, fmt.Sprintf("Viagem completa (%d noites): entre R$ %.0f e R$ %.0f.",
				costs.Nights, costs.TotalEstimate.Min, costs.TotalEstimate.Max))
		}
	}
	return strings.Join(parts, "\n\n")
}
