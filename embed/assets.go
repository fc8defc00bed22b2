package embed

// assets maps a game identifier to the bundle the iframe loads.
var assets = map[string]string{
	"quiz":        "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/Quiz%20%281%29/index.html",
	"wordSearch":  "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/Caca-Palavras%20%281%29/index.html",
	"anagram":     "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/Anagrama%20%281%29/index.html",
	"trueOrFalse": "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/VerdadeiroOuFalso%20%282%29/index.html",
	"matchUp":     "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/SignificadosDasPalavras%20%281%29/index.html",
	"memoryGame":  "https://nyc3.digitaloceanspaces.com/metech/API-ATUALIZADA/JogoDaMemória%20%281%29/index.html",
}

// Resolve returns the bundle address for id, or "" for identifiers without one.
func Resolve(id string) string {
	return assets[id]
}
