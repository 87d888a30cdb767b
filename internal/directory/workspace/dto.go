package workspace

// UserDTO — структура для парсинга одного пользователя из JSON-ответа
// Workspace Admin API.
type UserDTO struct {
	ID            string            `json:"id"`
	PrimaryEmail  string            `json:"primaryEmail"`
	Name          NameDTO           `json:"name"`
	Suspended     bool              `json:"suspended"`
	Archived      bool              `json:"archived"`
	DeletionTime  string            `json:"deletionTime,omitempty"`
	OrgUnitPath   string            `json:"orgUnitPath"`
	CreationTime  string            `json:"creationTime"`
	LastLoginTime string            `json:"lastLoginTime"`
	Phones        []PhoneDTO        `json:"phones"`
	Organizations []OrganizationDTO `json:"organizations"`
	Relations     []RelationDTO     `json:"relations"`
}

type NameDTO struct {
	FullName   string `json:"fullName"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

type PhoneDTO struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

type OrganizationDTO struct {
	Title      string `json:"title"`
	Department string `json:"department"`
	Primary    bool   `json:"primary"`
}

type RelationDTO struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type userListResponse struct {
	Users         []UserDTO `json:"users"`
	NextPageToken string    `json:"nextPageToken"`
}

type OrgUnitDTO struct {
	Name              string `json:"name"`
	OrgUnitPath       string `json:"orgUnitPath"`
	ParentOrgUnitPath string `json:"parentOrgUnitPath"`
}

type orgUnitListResponse struct {
	OrganizationUnits []OrgUnitDTO `json:"organizationUnits"`
}

// tokenResponse — структура для парсинга ответа OAuth-эндпоинта.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
