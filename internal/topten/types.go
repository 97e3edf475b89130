package topten

// RegisterUserRequest is the NewRegister payload. Optional fields are
// dropped from the wire when empty.
type RegisterUserRequest struct {
	FirstName    string `json:"Nombre"`
	LastName     string `json:"Apellido"`
	Email        string `json:"Correo"`
	Password     string `json:"Clave"`
	EntityID     int64  `json:"Enti_Id"`
	ExternalID   string `json:"ExternalId"`
	Document     string `json:"Documento,omitempty"`
	DocumentType string `json:"DocumentoTipo,omitempty"`
	Phone        string `json:"Telefono,omitempty"`
	PhonePrefix  string `json:"TelefonoDDI,omitempty"`
	BirthDate    string `json:"FechaNacimiento,omitempty"`
}

// CartProduct is one line of an AddCartProductExternal payload.
type CartProduct struct {
	ProductID int64  `json:"Prod_Id"`
	Quantity  int    `json:"Quantity"`
	Terms     string `json:"TerminosSeleccionados,omitempty"`
}

// CreateCartRequest is the AddCartProductExternal payload.
type CreateCartRequest struct {
	UserID       int64         `json:"Usua_Cod"`
	CartProducts []CartProduct `json:"CartProducts"`
}

// CreatePaymentRequest is the PaymentPlacetopay payload. OrderJSON is the
// nested order description, pre-encoded and passed as a string.
type CreatePaymentRequest struct {
	CartID           int64  `json:"Carr_Id"`
	PaymentConceptID int64  `json:"Coge_Id_Pago"`
	PaymentMethodID  int64  `json:"Mepa_Id"`
	OrderJSON        string `json:"JsonPedido"`
	RedirectURL      string `json:"UrlRedirect"`
	NotificationURL  string `json:"UrlNotification,omitempty"`
}

// PaymentSession is the validated result of a PaymentPlacetopay call.
type PaymentSession struct {
	Token         string
	RedirectURL   string
	ExpirationUTC int64
	AcquirerID    int64
}

// ProductsDetailRequest is the paginated GetProductosDetail payload.
type ProductsDetailRequest struct {
	EntityID int64  `json:"Enti_Id"`
	Page     int    `json:"Pagina"`
	Keyword  string `json:"PalabraClave,omitempty"`
}

// ProductTerm is one selectable term (variant) of a remote product.
type ProductTerm struct {
	TermID int64  `json:"Term_Id"`
	Name   string `json:"Term_Nombre"`
	SKU    string `json:"SkuPropio"`
}

// ProductDetail is one entry of a GetProductosDetail page.
type ProductDetail struct {
	Info struct {
		Product struct {
			ID   int64  `json:"Prod_Id"`
			SKU  string `json:"Prod_Sku"`
			Name string `json:"Prod_Nombre"`
		} `json:"Producto"`
		Terms []ProductTerm `json:"TerminosList"`
	} `json:"InfoProducto"`
}

type productsDetailResponse struct {
	Products []ProductDetail `json:"Productos"`
}
