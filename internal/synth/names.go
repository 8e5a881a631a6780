package synth

// gofakeit has no gendered first names, so the name rules draw from these
// lists when the row carries a male or female hint.

var maleFirstNames = []string{
	"James", "John", "Robert", "Michael", "William", "David", "Richard",
	"Joseph", "Thomas", "Charles", "Christopher", "Daniel", "Matthew",
	"Anthony", "Mark", "Donald", "Steven", "Paul", "Andrew", "Joshua",
	"Kenneth", "Kevin", "Brian", "George", "Timothy", "Ronald", "Edward",
	"Jason", "Jeffrey", "Ryan", "Jacob", "Gary", "Nicholas", "Eric",
	"Jonathan", "Stephen", "Larry", "Justin", "Scott", "Brandon", "Benjamin",
	"Samuel", "Gregory", "Alexander", "Patrick", "Frank", "Raymond", "Jack",
}

var femaleFirstNames = []string{
	"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan",
	"Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Betty", "Margaret",
	"Sandra", "Ashley", "Kimberly", "Emily", "Donna", "Michelle", "Carol",
	"Amanda", "Dorothy", "Melissa", "Deborah", "Stephanie", "Rebecca",
	"Sharon", "Laura", "Cynthia", "Kathleen", "Amy", "Angela", "Shirley",
	"Anna", "Brenda", "Pamela", "Emma", "Nicole", "Helen", "Samantha",
	"Katherine", "Christine", "Debra", "Rachel", "Carolyn", "Janet", "Maria",
}
