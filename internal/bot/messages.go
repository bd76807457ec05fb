package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok !`
	MsgUnexpectedErr = `Erreur inattendue : %s`
	MsgStartPrompt   = "Envoie une photo de l'objet à vendre pour créer ton annonce Leboncoin."
	MsgVersionInfo   = "Version : %s\nCompilée : %s"
	MsgBusy          = "⏳ Une génération est déjà en cours, patiente un instant."
)

// =============================================================================
// Photo and generation messages
// =============================================================================

const (
	MsgPhotoReceived     = "📸 Photo reçue ! Combien de mises en situation veux-tu générer ?"
	MsgPhotoDownloadFail = "Impossible de télécharger la photo. Réessaie."
	MsgNoPhoto           = "Envoie d'abord une photo de l'objet."
	MsgInvalidImageCount = "Nombre d'images invalide (entre %d et %d)."
	MsgGenerationFailed  = "❌ La génération a échoué : %s\n\nTa photo est conservée, choisis à nouveau le nombre d'images pour réessayer."
	MsgGenerationDone    = "✅ Annonce prête !"
	MsgRestarted         = "Annonce effacée. Ta photo est conservée, choisis le nombre d'images pour relancer."
)

// Progress statuses shown in the edited status message.
const (
	MsgProgressAnalyzing    = "🔎 Analyse de l'objet..."
	MsgProgressCoverImage   = "🖼 Création de l'image de couverture..."
	MsgProgressLifestyle    = "🛋 Mise en situation (%d/%d)..."
	MsgProgressRegenerating = "🎨 Régénération personnalisée..."
	MsgProgressRefining     = "✍️ Optimisation du texte..."
	MsgProgressDone         = "✔️ Terminé."
)

// =============================================================================
// Listing messages
// =============================================================================

const (
	MsgListingFmt = `
		*%s*

		💶 Prix : %s

		%s`
	MsgListingTipsHeader = "\n\n💡 *Conseils pour vendre plus vite :*\n"
	MsgPriceUnknown      = "à définir"
	MsgNoListing         = "Aucune annonce générée pour le moment. Envoie une photo pour commencer."
	MsgImageCaptionCover = "Couverture"
	MsgImageCaptionScene = "Mise en situation %d"
)

// =============================================================================
// Edit messages
// =============================================================================

const (
	MsgTitleUpdated       = "✅ Titre mis à jour."
	MsgPriceUpdated       = "✅ Prix mis à jour."
	MsgDescriptionUpdated = "✅ Description mise à jour."
	MsgEditUsage          = "Utilisation : `%s <nouvelle valeur>`"
	MsgDescriptionRefined = "✨ Description optimisée :\n\n%s"
	MsgRefineFailed       = "❌ L'optimisation a échoué : %s"
)

// =============================================================================
// Regeneration messages
// =============================================================================

const (
	MsgRegenPrompt    = "Décris la mise en scène souhaitée pour cette image (ex. « sur une table en bois, lumière du matin »).\n\n/annuler pour abandonner."
	MsgRegenCancelled = "Régénération annulée."
	MsgRegenFailed    = "❌ La régénération a échoué : %s\n\nL'image précédente est conservée."
	MsgRegenEmpty     = "Instruction vide, rien n'a été modifié."
	MsgRegenDone      = "✅ Image régénérée."
	MsgUnknownSlot    = "Cette image n'existe plus."
)

// =============================================================================
// Error kind messages
// =============================================================================

const (
	MsgErrQuota       = "Quota Gemini atteint. Réessayez plus tard ou vérifiez votre plan API."
	MsgErrCredential  = "Clé API invalide ou manquante. Vérifiez GEMINI_API_KEY sur le relais."
	MsgErrRateLimited = "Trop de requêtes. Patience..."
	MsgErrBadRequest  = "Erreur de requête. L'image ou le prompt est peut-être trop volumineux."
	MsgErrMalformed   = "La réponse du modèle est illisible. Réessayez."
	MsgErrNoImage     = "Le modèle n'a pas renvoyé d'image. Réessayez."
	MsgErrUnknown     = "Erreur lors de la génération. Vérifiez votre connexion. (%s)"
)

// =============================================================================
// Button labels
// =============================================================================

const (
	BtnRegenerate = "🎨 Régénérer"
	BtnRefine     = "✨ Optimiser la description"
	BtnRestart    = "🔄 Recommencer"
	BtnImageCount = "%d"
)
