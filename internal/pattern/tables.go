package pattern

import "github.com/pocketmoney/chatledger/internal/model"

// OrderRules capture line items. Quantity forms outweigh bare item+price
// forms because an explicit count is the stronger order signal.
var OrderRules = []Rule{
	{
		Name:     "ms-qty-item",
		Expr:     `\b(?:nak|nk|mau|pesan|tempah)\s+(?P<qty>\d+)\s+(?:biji\s+|bungkus\s+|kotak\s+|pinggan\s+)?(?P<item>[\pL][\pL\s]*?)(?:\s+rm\s*(?P<price>\d+(?:\.\d+)?))?\s*(?:$|[,.;\n]|\b(?:nama|hp|no|tel|alamat)\b)`,
		Language: model.LanguageMalay,
		Weight:   0.85,
	},
	{
		Name:     "ms-item-price",
		Expr:     `\b(?:nak|nk|mau|pesan|tempah)\s+(?P<item>[\pL][\pL\s]*?)\s+rm\s*(?P<price>\d+(?:\.\d+)?)`,
		Language: model.LanguageMalay,
		Weight:   0.75,
	},
	{
		Name:     "en-qty-item",
		Expr:     `\b(?:want|need|order|buy|take|book)\s+(?P<qty>\d+)\s*(?:x\s*|pcs?\s+|pieces?\s+|sets?\s+)?(?P<item>[\pL][\pL\s]*?)(?:\s+(?:rm|\$)\s*(?P<price>\d+(?:\.\d+)?))?\s*(?:$|[,.;\n]|\b(?:name|phone|hp|no|tel|address)\b)`,
		Language: model.LanguageEnglish,
		Weight:   0.85,
	},
	{
		Name:     "en-item-price",
		Expr:     `\b(?:want|need|order|buy)\s+(?:some\s+|the\s+)?(?P<item>[\pL][\pL\s]*?)\s+(?:rm|\$)\s*(?P<price>\d+(?:\.\d+)?)`,
		Language: model.LanguageEnglish,
		Weight:   0.75,
	},
}

// AmountRules find a total in first-match-wins order. An explicit "total"
// label beats an incidental currency mention.
var AmountRules = []Rule{
	{
		Name:     "labelled-total",
		Expr:     `\b(?:total|jumlah)\s*[:=]?\s*(?:rm|\$)?\s*(?P<amount>\d+(?:\.\d+)?)\b`,
		Language: model.LanguageBoth,
		Weight:   0.85,
	},
	{
		Name:     "rm-amount",
		Expr:     `\brm\s*(?P<amount>\d+(?:\.\d+)?)\b`,
		Language: model.LanguageBoth,
		Weight:   0.8,
	},
	{
		Name:     "ringgit-amount",
		Expr:     `\b(?P<amount>\d+(?:\.\d+)?)\s*ringgit\b`,
		Language: model.LanguageMalay,
		Weight:   0.8,
	},
	{
		Name:     "dollar-amount",
		Expr:     `\$\s*(?P<amount>\d+(?:\.\d+)?)\b`,
		Language: model.LanguageEnglish,
		Weight:   0.8,
	},
}

// ContactNameRules and ContactPhoneRules capture customer metadata. They
// carry no weight: knowing who sent the order does not make it more of an
// order.
var ContactNameRules = []Rule{
	{
		Name:     "labelled-name",
		Expr:     `\b(?:nama|name)\s*[:=]?\s*(?P<name>[\pL][\pL\s.'-]*?)\s*(?:$|[,.;\n]|\b(?:hp|no|tel|phone|alamat|address)\b)`,
		Language: model.LanguageBoth,
	},
}

var ContactPhoneRules = []Rule{
	{
		Name:     "labelled-phone",
		Expr:     `\b(?:hp|phone|tel|no)\s*[:.]?\s*(?P<phone>\+?\d[\d\s-]{7,}\d)`,
		Language: model.LanguageBoth,
	},
}

// PaymentReferenceRules capture transaction references, the strongest
// generic payment signal short of a named bank.
var PaymentReferenceRules = []Rule{
	{
		Name:     "labelled-reference",
		Expr:     `\b(?:ref|reference|rujukan)\s*(?:no|num|number)?\s*[:#.]?\s*(?P<ref>[A-Za-z0-9][A-Za-z0-9-]{2,})`,
		Language: model.LanguageBoth,
		Weight:   0.9,
	},
}

// BankNameRules name the Malaysian banks customers actually write. A named
// bank is the strongest payment signal there is.
var BankNameRules = []Rule{
	{
		Name:     "my-bank",
		Expr:     `\b(?P<bank>maybank|cimb|public\s+bank|rhb|bank\s+islam|hong\s+leong|ocbc|uob)\b`,
		Language: model.LanguageBoth,
		Weight:   0.95,
	},
}

// WalletRules cover the local e-wallet rails. Applied only when no bank
// matched, so a wallet mention never downgrades a bank transfer.
var WalletRules = []Rule{
	{
		Name:     "my-ewallet",
		Expr:     `\b(?:tng|touch\s*['’]?n['’]?\s*go|grabpay|grab\s*pay|boost|duitnow|shopeepay|fpx)\b`,
		Language: model.LanguageBoth,
		Weight:   0.9,
	},
}

// TransferRules are the generic fallback when neither bank nor wallet is
// named.
var TransferRules = []Rule{
	{
		Name:     "generic-transfer",
		Expr:     `\b(?:transfer|transferred|trf|trx|bank\s+in)\b`,
		Language: model.LanguageBoth,
		Weight:   0.85,
	},
}

// AddressRules capture a delivery address as the remainder of its line.
var AddressRules = []Rule{
	{
		Name:     "labelled-address",
		Expr:     `\b(?:alamat|address)\s*[:=]?\s*(?P<address>[^\n]{3,})`,
		Language: model.LanguageBoth,
		Weight:   0.8,
	},
}

// DeliveryTimeRules need either a qualifier word or an explicit meridiem so
// that a bare quantity ("hantar 2 bungkus") is never read as a time.
var DeliveryTimeRules = []Rule{
	{
		Name:     "qualified-time",
		Expr:     `\b(?:sampai|hantar|deliver(?:y)?|pos|send)\s+(?:by|at|before|pukul|pada|jam)\s*(?P<time>\d{1,2}(?:[:.]\d{2})?\s*(?:am|pm|pagi|tengahari|petang|malam)?)\b`,
		Language: model.LanguageBoth,
		Weight:   0.7,
	},
	{
		Name:     "meridiem-time",
		Expr:     `\b(?P<time>\d{1,2}(?:[:.]\d{2})?\s*(?:am|pm|pagi|tengahari|petang|malam))\b`,
		Language: model.LanguageBoth,
		Weight:   0.7,
	},
}

// Library bundles the compiled rule sets the extractors share.
type Library struct {
	Order        Set
	Amount       Set
	ContactName  Set
	ContactPhone Set
	PaymentRef   Set
	Bank         Set
	Wallet       Set
	Transfer     Set
	Address      Set
	DeliveryTime Set
}

var defaultLibrary = &Library{
	Order:        MustCompile(OrderRules),
	Amount:       MustCompile(AmountRules),
	ContactName:  MustCompile(ContactNameRules),
	ContactPhone: MustCompile(ContactPhoneRules),
	PaymentRef:   MustCompile(PaymentReferenceRules),
	Bank:         MustCompile(BankNameRules),
	Wallet:       MustCompile(WalletRules),
	Transfer:     MustCompile(TransferRules),
	Address:      MustCompile(AddressRules),
	DeliveryTime: MustCompile(DeliveryTimeRules),
}

// DefaultLibrary returns the shared built-in library. The value is
// immutable after init and safe for concurrent use.
func DefaultLibrary() *Library {
	return defaultLibrary
}
