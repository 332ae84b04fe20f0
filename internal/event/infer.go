package event

var categoryByType = map[EventType]Category{
	TypePageView:   CategoryNavigation,
	TypePageExit:   CategoryNavigation,
	TypePageScroll: CategoryNavigation,
	TypePageResize: CategoryNavigation,

	TypeClick:       CategoryInteraction,
	TypeDoubleClick: CategoryInteraction,
	TypeRightClick:  CategoryInteraction,
	TypeHover:       CategoryInteraction,
	TypeHoverExit:   CategoryInteraction,
	TypeButtonClick: CategoryInteraction,
	TypeLinkClick:   CategoryInteraction,
	TypeImageClick:  CategoryInteraction,
	TypeCustomEvent: CategoryInteraction,

	TypeFormFocus:      CategoryForm,
	TypeFormBlur:       CategoryForm,
	TypeFormInput:      CategoryForm,
	TypeFormSubmit:     CategoryForm,
	TypeFormValidation: CategoryForm,

	TypeVideoPlay:  CategoryMedia,
	TypeVideoPause: CategoryMedia,

	TypeSearchQuery:       CategorySearch,
	TypeSearchResultClick: CategorySearch,
	TypeFilterApplied:     CategorySearch,
	TypeSortChanged:       CategorySearch,

	TypeCartAdd:         CategoryCommerce,
	TypeCartRemove:      CategoryCommerce,
	TypeCheckoutStart:   CategoryCommerce,
	TypePaymentComplete: CategoryCommerce,

	TypeLoginAttempt:      CategoryAuthentication,
	TypeLoginSuccess:      CategoryAuthentication,
	TypeLoginFailure:      CategoryAuthentication,
	TypeLogout:            CategoryAuthentication,
	TypeSignupStart:       CategoryAuthentication,
	TypeSignupComplete:    CategoryAuthentication,
	TypeEmailVerification: CategoryAuthentication,

	TypeContentCreate: CategoryContent,
	TypeContentEdit:   CategoryContent,
	TypeContentDelete: CategoryContent,
	TypeContentShare:  CategoryContent,

	TypeCommentAdd:    CategorySocial,
	TypeCommentEdit:   CategorySocial,
	TypeCommentDelete: CategorySocial,
	TypeCommentLike:   CategorySocial,
	TypeFollowUser:    CategorySocial,
	TypeUnfollowUser:  CategorySocial,
	TypeBlockUser:     CategorySocial,
	TypeReportContent: CategorySocial,

	TypeNotificationReceived:  CategoryNotification,
	TypeNotificationClicked:   CategoryNotification,
	TypeNotificationDismissed: CategoryNotification,

	TypeErrorOccurred:    CategorySystem,
	TypePerformanceIssue: CategorySystem,
	TypeSecurityAlert:    CategorySystem,

	TypeAgentAction:       CategoryAI,
	TypeContentGeneration: CategoryAI,
	TypeAIInteraction:     CategoryAI,
}

var priorityByType = map[EventType]Priority{
	TypeErrorOccurred:    PriorityCritical,
	TypeSecurityAlert:    PriorityCritical,
	TypePerformanceIssue: PriorityHigh,
	TypeLoginFailure:     PriorityHigh,
	TypePaymentComplete:  PriorityHigh,
	TypeContentCreate:    PriorityMedium,
	TypeContentEdit:      PriorityMedium,
	TypeFormSubmit:       PriorityMedium,
	TypePageView:         PriorityLow,
	TypeHover:            PriorityLow,
	TypePageScroll:       PriorityLow,
}

// InferCategory returns the default category for a type; unknown types fall
// back to interaction.
func InferCategory(t EventType) Category {
	if c, ok := categoryByType[t]; ok {
		return c
	}
	return CategoryInteraction
}

// InferPriority returns the default priority for a type; unlisted types fall
// back to medium.
func InferPriority(t EventType) Priority {
	if p, ok := priorityByType[t]; ok {
		return p
	}
	return PriorityMedium
}

// shouldAnalyze marks the events worth an inline reasoning call.
func shouldAnalyze(e *Event) bool {
	return e.Priority == PriorityHigh || e.Priority == PriorityCritical || e.Category == CategoryAI
}
