package errors

var (
	ErrFundingDeclined = &DomainError{
		Code:    "FUNDING_DECLINED",
		Message: "the card payment was not completed",
		Kind:    KindBusiness,
	}
	ErrFundingProvider = &DomainError{
		Code:    "FUNDING_PROVIDER_ERROR",
		Message: "payment provider request failed",
		Kind:    KindServer,
	}
)
